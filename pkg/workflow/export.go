package workflow

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// sensitiveKeyFragments flag configuration keys that usually name a
// credential. Matching is case-insensitive and runs against key names
// only, so values are not inspected twice.
var sensitiveKeyFragments = []string{
	"KEY",
	"SECRET",
	"TOKEN",
	"PASSWORD",
	"PASSPHRASE",
	"CREDENTIAL",
	"AUTH",
	"BEARER",
	"PRIVATE",
}

// credentialValuePatterns match concrete secret formats. Generic
// high-entropy patterns are deliberately absent: node ids embed random
// hex and would match, so value scanning sticks to recognizable shapes
// and leaves the broader heuristic to the key names above.
var credentialValuePatterns = []struct {
	name     string
	severity string
	re       *regexp.Regexp
}{
	{"AWS access key id", "high", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"GitHub token", "high", regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9_]{36,}\b`)},
	{"Stripe API key", "high", regexp.MustCompile(`\b[rs]k_(live|test)_[a-zA-Z0-9]{24,}\b`)},
	{"bearer token", "high", regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_=]+\.[A-Za-z0-9\-_=]+\.[A-Za-z0-9\-_.+/=]*`)},
	{"private key block", "high", regexp.MustCompile(`-----BEGIN\s+(RSA|DSA|EC|OPENSSH)\s+PRIVATE\s+KEY-----`)},
	{"connection string with inline password", "high", regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb|redis|amqp)://[^:/\s]+:[^@\s]+@`)},
	{"password assignment", "high", regexp.MustCompile(`(?i)password\s*[:=]\s*\S{8,}`)},
	{"environment assignment of a secret-named variable", "medium", regexp.MustCompile(`(?i)\b[A-Z0-9_]*(KEY|SECRET|TOKEN|PASSWORD|PASSPHRASE)[A-Z0-9_]*\s*=\s*\S+`)},
}

// CredentialWarning flags a configuration value that looks like an
// embedded secret. Exported workflow files are plain YAML readable by
// anyone with filesystem access; secrets belong in the engine's
// credential store and should be referenced by name.
type CredentialWarning struct {
	Location string
	Severity string // "high" for a recognized secret format, "medium" for a suspicious name
	Message  string
}

// ScanForCredentials walks every node's configuration and reports
// values that look like embedded credentials. The scan is advisory:
// callers surface the warnings but never block on them, since the
// heuristics cannot prove a value is a secret.
func ScanForCredentials(wf *Workflow) []CredentialWarning {
	if wf == nil {
		return nil
	}

	var warnings []CredentialWarning
	for _, node := range wf.Nodes {
		keys := make([]string, 0, len(node.Data))
		for k := range node.Data {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			loc := fmt.Sprintf("node %s, field %s", node.ID, key)
			value := node.Data[key]

			if keyLooksSensitive(key) && StringFieldValue(value) != "" {
				warnings = append(warnings, CredentialWarning{
					Location: loc,
					Severity: "medium",
					Message:  fmt.Sprintf("field name %q suggests a credential; reference the engine credential store instead", key),
				})
			}

			warnings = append(warnings, scanValue(loc, value)...)
		}
	}
	return warnings
}

func keyLooksSensitive(key string) bool {
	upper := strings.ToUpper(key)
	for _, fragment := range sensitiveKeyFragments {
		if strings.Contains(upper, fragment) {
			return true
		}
	}
	return false
}

// scanValue matches string values against the known secret formats,
// descending into slices and nested maps.
func scanValue(location string, v interface{}) []CredentialWarning {
	switch val := v.(type) {
	case string:
		return scanString(location, val)
	case []string:
		var warnings []CredentialWarning
		for i, item := range val {
			warnings = append(warnings, scanString(fmt.Sprintf("%s[%d]", location, i), item)...)
		}
		return warnings
	case []interface{}:
		var warnings []CredentialWarning
		for i, item := range val {
			warnings = append(warnings, scanValue(fmt.Sprintf("%s[%d]", location, i), item)...)
		}
		return warnings
	case map[string]interface{}:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var warnings []CredentialWarning
		for _, k := range keys {
			warnings = append(warnings, scanValue(location+"."+k, val[k])...)
		}
		return warnings
	default:
		return nil
	}
}

func scanString(location, s string) []CredentialWarning {
	var warnings []CredentialWarning
	for _, pattern := range credentialValuePatterns {
		if pattern.re.MatchString(s) {
			warnings = append(warnings, CredentialWarning{
				Location: location,
				Severity: pattern.severity,
				Message:  fmt.Sprintf("value matches the shape of a %s", pattern.name),
			})
		}
	}
	return warnings
}
