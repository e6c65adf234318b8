package config

import (
	"os"
	"regexp"
)

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// substituteEnv replaces ${VAR} references with the value of VAR from the
// current environment, recursively across strings, objects, and arrays.
// Unset variables substitute to the empty string.
func substituteEnv(data any) any {
	switch v := data.(type) {
	case string:
		return envPattern.ReplaceAllStringFunc(v, func(m string) string {
			name := envPattern.FindStringSubmatch(m)[1]
			return os.Getenv(name)
		})
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = substituteEnv(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = substituteEnv(item)
		}
		return out
	default:
		return data
	}
}
