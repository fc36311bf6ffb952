package core

import "strings"

const RedactedValue = "[REDACTED]"

// RedactSensitiveMap returns a copy of metadata with token-like values masked.
func RedactSensitiveMap(metadata map[string]any) map[string]any {
	if len(metadata) == 0 {
		return map[string]any{}
	}
	return redactSensitiveMap(metadata)
}

func redactSensitiveMap(source map[string]any) map[string]any {
	target := make(map[string]any, len(source))
	for key, value := range source {
		if shouldRedactKey(key) {
			target[key] = RedactedValue
			continue
		}
		target[key] = redactSensitiveValue(value)
	}
	return target
}

func redactSensitiveValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		return redactSensitiveMap(typed)
	case []any:
		out := make([]any, len(typed))
		for i := range typed {
			out[i] = redactSensitiveValue(typed[i])
		}
		return out
	default:
		return value
	}
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	sensitiveTokens := []string{
		"password",
		"secret",
		"token",
		"authorization",
		"api_key",
		"apikey",
		"refresh",
		"credential",
		"code",
	}
	for _, token := range sensitiveTokens {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}

// RedactURLQuery masks sensitive query values in raw, leaving the rest intact.
func RedactURLQuery(raw string) string {
	idx := strings.Index(raw, "?")
	if idx < 0 {
		return raw
	}
	base, query := raw[:idx], raw[idx+1:]
	parts := strings.Split(query, "&")
	for i, part := range parts {
		key, _, found := strings.Cut(part, "=")
		if found && shouldRedactKey(key) {
			parts[i] = key + "=" + RedactedValue
		}
	}
	return base + "?" + strings.Join(parts, "&")
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "request_id",
		"status_code",
		"endpoint",
		"method",
		"token_kind",
		"error_code",
		"account_id":
		return true
	default:
		return false
	}
}
