package logger

import (
	"fmt"
	"strings"
)

var sensitiveKeys = map[string]bool{
	"email":        true,
	"phone":        true,
	"whatsapp":     true,
	"cpf":          true,
	"document":     true,
	"access_token": true,
	"password":     true,
}

// redact masks customer contact data and credentials. Values under other keys
// pass through untouched.
func redact(key string, value any) any {
	if !sensitiveKeys[strings.ToLower(key)] || value == nil {
		return value
	}
	var raw string
	switch v := value.(type) {
	case string:
		raw = v
	case *string:
		if v == nil {
			return value
		}
		raw = *v
	default:
		raw = fmt.Sprint(v)
	}
	if raw == "" {
		return raw
	}
	if at := strings.LastIndexByte(raw, '@'); at > 0 && strings.EqualFold(key, "email") {
		return raw[:1] + "***" + raw[at:]
	}
	if len(raw) <= 4 {
		return "***"
	}
	return "***" + raw[len(raw)-2:]
}
