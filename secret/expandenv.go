package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// envRefPattern matches ${VAR} references and the $$ escape. Bare $VAR is
// left alone: YAML values legitimately contain dollars (prices, regexes)
// and only the braced form opts into expansion.
var envRefPattern = regexp.MustCompile(`\$\$|\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict replaces every ${VAR} in s with the variable's value.
// `$$` emits a literal dollar. Referencing an unset variable is an error:
// a half-expanded listen address or credential must not survive into a
// running config.
func ExpandEnvStrict(s string) (string, error) {
	missing := make(map[string]struct{})
	out := envRefPattern.ReplaceAllStringFunc(s, func(m string) string {
		if m == "$$" {
			return "$"
		}
		key := m[2 : len(m)-1]
		value, ok := os.LookupEnv(key)
		if !ok {
			missing[key] = struct{}{}
			return m
		}
		return value
	})
	if len(missing) == 0 {
		return out, nil
	}

	keys := make([]string, 0, len(missing))
	for k := range missing {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return "", fmt.Errorf("missing required environment variables: %s", strings.Join(keys, ", "))
}
