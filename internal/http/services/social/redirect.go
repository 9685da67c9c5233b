package social

import "strings"

// SafeRedirect reports whether raw is an acceptable post-login target and
// returns it normalized. Only local paths are accepted: the value must start
// with a single "/". Anything else (absolute URLs, protocol-relative "//host"
// forms, backslash variants) is rejected so the flow can never bounce the
// browser to a foreign origin.
func SafeRedirect(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if !strings.HasPrefix(raw, "/") {
		return "", false
	}
	// "//evil.example" and "/\evil.example" are treated as scheme-relative
	// URLs by browsers.
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return "", false
	}
	return raw, true
}
