package logging

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// RollingConfig configures rolling log behavior
type RollingConfig struct {
	MaxSize     int64  // Max size in bytes before rotation (default: 10MB)
	MaxAge      int    // Max days to keep old logs (default: 7)
	MaxBackups  int    // Max number of old logs to keep (default: 5)
	Compress    bool   // Compress rotated logs (default: true)
	BaseName    string // Base log file name
	LogDir      string // Directory for logs
	TimePattern string // Time pattern for rotation (default: "2006-01-02")
}

// DefaultRollingConfig returns sensible defaults
func DefaultRollingConfig() RollingConfig {
	return RollingConfig{
		MaxSize:     10 * 1024 * 1024,
		MaxAge:      7,
		MaxBackups:  5,
		Compress:    true,
		BaseName:    "experiment-designer",
		LogDir:      "logs",
		TimePattern: "2006-01-02",
	}
}

// RollingWriter is an io.Writer over a dated log file that rotates on date
// change or when MaxSize would be exceeded
type RollingWriter struct {
	mu          sync.Mutex
	config      RollingConfig
	currentFile *os.File
	currentSize int64
	currentDate string
	isJSON      bool
	now         func() time.Time
	wg          sync.WaitGroup
}

// NewRollingWriter creates a new rolling log writer
func NewRollingWriter(cfg RollingConfig, isJSON bool) (*RollingWriter, error) {
	rw := &RollingWriter{
		config: cfg,
		isJSON: isJSON,
		now:    time.Now,
	}

	if err := os.MkdirAll(cfg.LogDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	if err := rw.openNewFile(); err != nil {
		return nil, err
	}

	rw.background(rw.cleanOldLogs)
	return rw, nil
}

// Write implements io.Writer
func (rw *RollingWriter) Write(p []byte) (n int, err error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.currentFile == nil {
		return 0, os.ErrClosed
	}

	if rw.shouldRotate(len(p)) {
		if err := rw.rotate(); err != nil {
			return 0, err
		}
	}

	n, err = rw.currentFile.Write(p)
	rw.currentSize += int64(n)
	return
}

// Sync flushes the current file
func (rw *RollingWriter) Sync() error {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	if rw.currentFile == nil {
		return nil
	}
	return rw.currentFile.Sync()
}

// Close closes the current file and waits for pending compression
func (rw *RollingWriter) Close() error {
	rw.mu.Lock()
	var err error
	if rw.currentFile != nil {
		err = rw.currentFile.Close()
		rw.currentFile = nil
	}
	rw.mu.Unlock()

	rw.wg.Wait()
	return err
}

func (rw *RollingWriter) background(fn func()) {
	rw.wg.Add(1)
	go func() {
		defer rw.wg.Done()
		fn()
	}()
}

func (rw *RollingWriter) shouldRotate(newBytes int) bool {
	if rw.now().Format(rw.config.TimePattern) != rw.currentDate {
		return true
	}
	return rw.config.MaxSize > 0 && rw.currentSize > 0 && rw.currentSize+int64(newBytes) > rw.config.MaxSize
}

// rotate moves the full file aside under a numbered name so the dated path
// can be reopened empty
func (rw *RollingWriter) rotate() error {
	if rw.currentFile != nil {
		rw.currentFile.Close()
		rw.currentFile = nil

		old := rw.currentPath()
		rotated := rw.backupPath()
		if err := os.Rename(old, rotated); err != nil {
			return fmt.Errorf("failed to rotate log file: %w", err)
		}
		if rw.config.Compress {
			rw.background(func() { _ = compressFile(rotated) })
		}
	}

	return rw.openNewFile()
}

func (rw *RollingWriter) openNewFile() error {
	rw.currentDate = rw.now().Format(rw.config.TimePattern)
	path := rw.currentPath()

	var currentSize int64
	if info, err := os.Stat(path); err == nil {
		currentSize = info.Size()
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	rw.currentFile = f
	rw.currentSize = currentSize
	return nil
}

func (rw *RollingWriter) ext() string {
	if rw.isJSON {
		return ".jsonl"
	}
	return ".log"
}

// currentPath returns the current log file path
func (rw *RollingWriter) currentPath() string {
	return filepath.Join(rw.config.LogDir, fmt.Sprintf("%s-%s%s", rw.config.BaseName, rw.currentDate, rw.ext()))
}

// backupPath returns the first free numbered name for the current date
func (rw *RollingWriter) backupPath() string {
	for i := 1; ; i++ {
		p := filepath.Join(rw.config.LogDir, fmt.Sprintf("%s-%s.%d%s", rw.config.BaseName, rw.currentDate, i, rw.ext()))
		if _, err := os.Stat(p); os.IsNotExist(err) {
			if _, err := os.Stat(p + ".gz"); os.IsNotExist(err) {
				return p
			}
		}
	}
}

// compressFile gzips path next to itself and removes the original on success
func compressFile(path string) (err error) {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	gzPath := path + ".gz"
	dst, err := os.Create(gzPath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(gzPath)
		}
	}()

	gzw := gzip.NewWriter(dst)
	gzw.Name = filepath.Base(path)
	if _, err = io.Copy(gzw, src); err != nil {
		return err
	}
	if err = gzw.Close(); err != nil {
		return err
	}
	src.Close()
	return os.Remove(path)
}

// cleanOldLogs removes logs older than MaxAge and keeps only MaxBackups
func (rw *RollingWriter) cleanOldLogs() {
	rw.mu.Lock()
	currentPath := rw.currentPath()
	cutoff := rw.now().AddDate(0, 0, -rw.config.MaxAge)
	rw.mu.Unlock()

	pattern := filepath.Join(rw.config.LogDir, fmt.Sprintf("%s-*%s*", rw.config.BaseName, rw.ext()))
	files, err := filepath.Glob(pattern)
	if err != nil {
		return
	}

	type entry struct {
		path    string
		modTime time.Time
	}
	var old []entry
	for _, f := range files {
		if f == currentPath {
			continue
		}
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		old = append(old, entry{f, info.ModTime()})
	}
	sort.Slice(old, func(i, j int) bool {
		return old[i].modTime.After(old[j].modTime)
	})

	for i, e := range old {
		if e.modTime.Before(cutoff) || (rw.config.MaxBackups > 0 && i >= rw.config.MaxBackups) {
			os.Remove(e.path)
		}
	}
}

// LogFileInfo describes one log file on disk
type LogFileInfo struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// GetLogFiles returns the experiment designer log files in logDir, newest
// first. A missing directory yields no files.
func GetLogFiles(logDir string) []LogFileInfo {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return nil
	}

	prefix := DefaultRollingConfig().BaseName + "-"
	var files []LogFileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, LogFileInfo{
			Name:     e.Name(),
			Path:     filepath.Join(logDir, e.Name()),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Modified.After(files[j].Modified)
	})
	return files
}

// FormatSize formats bytes to human-readable size
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
