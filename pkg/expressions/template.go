package expressions

import (
	"fmt"
	"regexp"
	"strings"
)

// templatePattern matches {{ expression }} patterns
var templatePattern = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}`)

// Template interpolates {{ expression }} placeholders with evaluated values
type Template struct {
	evaluator *Evaluator
}

func NewTemplate(evaluator *Evaluator) *Template {
	return &Template{
		evaluator: evaluator,
	}
}

// Render replaces every placeholder. The last evaluation error is returned
// and the failing placeholder is left in place.
func (t *Template) Render(template string, data any) (string, error) {
	var lastErr error

	result := templatePattern.ReplaceAllStringFunc(template, func(match string) string {
		submatch := templatePattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}

		expression := strings.TrimSpace(submatch[1])
		value, err := t.evaluator.EvaluateString(expression, data)
		if err != nil {
			lastErr = fmt.Errorf("failed to evaluate %q: %w", expression, err)
			return match
		}

		return value
	})

	return result, lastErr
}

// Placeholders lists the trimmed expressions of a template in order of appearance
func Placeholders(template string) []string {
	matches := templatePattern.FindAllStringSubmatch(template, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, strings.TrimSpace(m[1]))
	}
	return out
}
