package generation

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// PromptPlaceholder is replaced with the literal prompt in request bodies.
const PromptPlaceholder = "${PROMPT}"

var envPlaceholder = regexp.MustCompile(`\$\{ENV:([A-Za-z_][A-Za-z0-9_]*)\}`)

// LookupFunc reads an environment variable. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

func orDefault(lookup LookupFunc) LookupFunc {
	if lookup == nil {
		return os.LookupEnv
	}
	return lookup
}

// ExpandEnv replaces every ${ENV:NAME} placeholder in s with the value of the
// named variable. An unset variable fails with ErrMissingEnvVar.
func ExpandEnv(s string, lookup LookupFunc) (string, error) {
	lookup = orDefault(lookup)

	var missing string
	out := envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		name := envPlaceholder.FindStringSubmatch(match)[1]
		value, ok := lookup(name)
		if !ok && missing == "" {
			missing = name
		}
		return value
	})
	if missing != "" {
		return "", fmt.Errorf("%w: %s", ErrMissingEnvVar, missing)
	}
	return out, nil
}

// ExpandEnvOrEmpty is ExpandEnv with unset variables expanding to "".
func ExpandEnvOrEmpty(s string, lookup LookupFunc) string {
	lookup = orDefault(lookup)
	return envPlaceholder.ReplaceAllStringFunc(s, func(match string) string {
		value, _ := lookup(envPlaceholder.FindStringSubmatch(match)[1])
		return value
	})
}

// SubstitutePrompt replaces every ${PROMPT} in template with prompt.
func SubstitutePrompt(template, prompt string) string {
	return strings.ReplaceAll(template, PromptPlaceholder, prompt)
}
