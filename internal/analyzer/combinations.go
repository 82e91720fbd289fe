package analyzer

import (
	"fmt"
	"math"
	"strings"

	"github.com/experiment-designer/internal/domain"
)

// GenerateVariableCombinations expands variables into their full Cartesian
// product, depth first in declaration order. Every group gets an even share
// of 100/total rounded to two decimals and only the first group is control.
// Designs above domain.MaxCombinationGroups are not enumerated and yield an
// empty list; callers reject them first.
func GenerateVariableCombinations(variables []domain.Variable) []domain.VariableCombination {
	combos := make([]domain.VariableCombination, 0)
	total := (&domain.ExtractedParams{Variables: variables}).CombinationCount()
	if total == 0 || total > domain.MaxCombinationGroups {
		return combos
	}
	combos = make([]domain.VariableCombination, 0, total)
	ratio := math.Round(100/float64(total)*100) / 100

	current := make([]string, len(variables))
	var walk func(depth int)
	walk = func(depth int) {
		if depth == len(variables) {
			combos = append(combos, buildCombination(len(combos)+1, variables, current, ratio))
			return
		}
		for _, value := range variables[depth].Values {
			current[depth] = value
			walk(depth + 1)
		}
	}
	walk(0)

	return combos
}

func buildCombination(n int, variables []domain.Variable, values []string, ratio float64) domain.VariableCombination {
	assignment := make(map[string]string, len(variables))
	pairs := make([]string, len(variables))
	for i, v := range variables {
		assignment[v.Name] = values[i]
		pairs[i] = v.Name + "=" + values[i]
	}
	return domain.VariableCombination{
		ID:                   fmt.Sprintf("combo_%d", n),
		Variables:            assignment,
		ExpectedTrafficRatio: ratio,
		GroupName:            strings.Join(pairs, "_"),
		Description:          strings.Join(pairs, ", "),
		IsControl:            n == 1,
	}
}
