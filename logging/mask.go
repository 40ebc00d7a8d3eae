package logging

import (
	"net/http"
	"strings"
)

func hideSecret(secret string) string {
	switch {
	case len(secret) > 8:
		return secret[:4] + "..." + secret[len(secret)-4:]
	case len(secret) > 4:
		return secret[:2] + "..." + secret[len(secret)-2:]
	case len(secret) > 2:
		return secret[:1] + "..." + secret[len(secret)-1:]
	}
	return secret
}

func maskAuthorization(value string) string {
	parts := strings.SplitN(strings.TrimSpace(value), " ", 2)
	if len(parts) < 2 {
		return hideSecret(value)
	}
	return parts[0] + " " + hideSecret(parts[1])
}

// MaskHeader returns value with credentials shortened so it is safe to log.
func MaskHeader(key, value string) string {
	lowerKey := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.Contains(lowerKey, "authorization"):
		return maskAuthorization(value)
	case strings.Contains(lowerKey, "api-key"),
		strings.Contains(lowerKey, "token"),
		strings.Contains(lowerKey, "secret"),
		lowerKey == "cookie":
		return hideSecret(value)
	default:
		return value
	}
}

// MaskHeaders flattens header into a loggable map with secrets masked.
func MaskHeaders(header http.Header) map[string]string {
	masked := make(map[string]string, len(header))
	for name, values := range header {
		masked[name] = MaskHeader(name, strings.Join(values, ", "))
	}
	return masked
}
