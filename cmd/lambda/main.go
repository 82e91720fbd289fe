// Package main provides the Lambda handler for the experiment designer.
// This is the entry point for AWS Lambda Function URL deployment.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"github.com/experiment-designer/internal/config"
	"github.com/experiment-designer/internal/controller"
	"github.com/experiment-designer/internal/domain"
	"github.com/experiment-designer/internal/logging"
	"github.com/experiment-designer/internal/web"
)

// app routes Function URL events onto the controller
type app struct {
	ctrl   *controller.Controller
	logger *logging.Logger
	token  string
}

func newApp(cfg *config.Config, logger *logging.Logger) *app {
	return &app{
		ctrl:   controller.New(controller.WithConfig(cfg), controller.WithLogger(logger)),
		logger: logger,
		token:  cfg.Server.APIToken,
	}
}

// Handler processes Lambda Function URL requests
func (a *app) Handler(ctx context.Context, request events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	path := strings.TrimSuffix(request.RawPath, "/")
	method := request.RequestContext.HTTP.Method
	requestID := headerValue(request.Headers, web.RequestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	start := time.Now()

	// Handle OPTIONS (CORS preflight)
	if method == http.MethodOptions {
		return events.LambdaFunctionURLResponse{
			StatusCode: http.StatusOK,
			Headers:    headers(requestID),
		}, nil
	}

	resp := a.route(ctx, method, path, request)
	resp.Headers = headers(requestID)
	a.logger.Info("%s %s %d %s request_id=%s", method, path, resp.StatusCode, time.Since(start), requestID)
	return resp, nil
}

func (a *app) route(ctx context.Context, method, path string, request events.LambdaFunctionURLRequest) events.LambdaFunctionURLResponse {
	if path == "/api/health" && method == http.MethodGet {
		return handleHealth(a.ctrl)
	}
	if !web.Authorized(headerValue(request.Headers, "Authorization"), a.token) {
		return errorResponse(domain.ErrUnauthorized)
	}

	body, err := requestBody(request)
	if err != nil {
		return errorResponse(err)
	}

	switch {
	case path == "/api/parse" && method == http.MethodPost:
		var req controller.ParseRequest
		if err := web.DecodeBody(web.SchemaParse, body, &req); err != nil {
			return errorResponse(err)
		}
		return result(a.ctrl.Parse(ctx, req))
	case path == "/api/parse/batch" && method == http.MethodPost:
		var req controller.BatchRequest
		if err := web.DecodeBody(web.SchemaBatch, body, &req); err != nil {
			return errorResponse(err)
		}
		return result(a.ctrl.ParseBatch(ctx, req))
	case path == "/api/templates" && method == http.MethodGet:
		return jsonResponse(http.StatusOK, a.ctrl.Templates())
	case strings.HasPrefix(path, "/api/templates/") && strings.HasSuffix(path, "/apply") && method == http.MethodPost:
		id := strings.TrimSuffix(strings.TrimPrefix(path, "/api/templates/"), "/apply")
		var overrides *domain.ExtractedParams
		if len(bytes.TrimSpace(body)) > 0 {
			overrides = &domain.ExtractedParams{}
			if err := web.DecodeBody("", body, overrides); err != nil {
				return errorResponse(err)
			}
		}
		return result(a.ctrl.ApplyTemplate(ctx, id, overrides))
	case path == "/api/assess" && method == http.MethodPost:
		var req controller.AssessRequest
		if err := web.DecodeBody("", body, &req); err != nil {
			return errorResponse(err)
		}
		return result(a.ctrl.Assess(ctx, req))
	case path == "/api/suggestions" && method == http.MethodPost:
		var req controller.SuggestionsRequest
		if err := web.DecodeBody("", body, &req); err != nil {
			return errorResponse(err)
		}
		return result(a.ctrl.Suggestions(ctx, req))
	case path == "/api/combinations" && method == http.MethodPost:
		var req controller.CombinationsRequest
		if err := web.DecodeBody(web.SchemaCombinations, body, &req); err != nil {
			return errorResponse(err)
		}
		return result(a.ctrl.Combinations(ctx, req))
	default:
		return jsonResponse(http.StatusNotFound, web.ErrorResponse{Error: "no route for " + method + " " + path})
	}
}

func handleHealth(ctrl *controller.Controller) events.LambdaFunctionURLResponse {
	return jsonResponse(http.StatusOK, web.HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   controller.Version,
		Checks: map[string]string{
			"templates": fmt.Sprintf("%d loaded", len(ctrl.Templates())),
			"runtime":   "lambda",
		},
	})
}

func requestBody(request events.LambdaFunctionURLRequest) ([]byte, error) {
	if !request.IsBase64Encoded {
		return []byte(request.Body), nil
	}
	body, err := base64.StdEncoding.DecodeString(request.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: body is not valid base64", domain.ErrInvalidInput)
	}
	return body, nil
}

// headerValue looks up a header case-insensitively; Function URLs lowercase names
func headerValue(h map[string]string, name string) string {
	if v, ok := h[strings.ToLower(name)]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func headers(requestID string) map[string]string {
	return map[string]string{
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
		"Access-Control-Allow-Headers": "Content-Type, Authorization, " + web.RequestIDHeader,
		"Content-Type":                 "application/json",
		web.RequestIDHeader:            requestID,
	}
}

func result(v any, err error) events.LambdaFunctionURLResponse {
	if err != nil {
		return errorResponse(err)
	}
	return jsonResponse(http.StatusOK, v)
}

func errorResponse(err error) events.LambdaFunctionURLResponse {
	return jsonResponse(web.StatusFor(err), web.ErrorResponse{Success: false, Error: err.Error()})
}

func jsonResponse(statusCode int, body any) events.LambdaFunctionURLResponse {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return events.LambdaFunctionURLResponse{
			StatusCode: http.StatusInternalServerError,
			Body:       `{"success":false,"error":"failed to serialize response"}`,
		}
	}
	return events.LambdaFunctionURLResponse{StatusCode: statusCode, Body: string(jsonBody)}
}

func main() {
	cfg := config.Get()

	logger, err := logging.New(logging.Config{
		Level:     logging.ParseLevel(cfg.Logging.Level),
		Component: "lambda",
		Version:   controller.Version,
	})
	if err != nil {
		logger = logging.GetDefault()
	}
	defer logger.Close()

	lambda.Start(newApp(cfg, logger).Handler)
}
