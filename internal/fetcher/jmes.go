package fetcher

import (
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// DefaultRequiredFields are the identity fields a lookup response must carry, as JMESPath expressions over the
// raw response body.
var DefaultRequiredFields = []string{
	"config.brokerId",
	"config.brokerName",
	"config.subdomain",
}

// EvalAny returns the raw value selected by the JMESPath expression.
// It will return nil and no error if the expression does not match anything.
func EvalAny(expression string, payload map[string]any) (any, error) {
	v, err := jmespath.Search(expression, payload)
	if err != nil {
		return nil, fmt.Errorf("jmespath: %w", err)
	}
	return v, nil
}

// missingFields returns the expressions that select nothing or an empty string.
func missingFields(expressions []string, payload map[string]any) ([]string, error) {
	var missing []string
	for _, expr := range expressions {
		v, err := EvalAny(expr, payload)
		if err != nil {
			return nil, err
		}
		s, ok := v.(string)
		if !ok || s == "" {
			missing = append(missing, expr)
		}
	}
	return missing, nil
}
