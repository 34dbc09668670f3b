package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "john.doe@example.com" → "jo***@example.com"
// Short local parts (≤2 chars) are fully masked: "ab@example.com" → "***@example.com"
func RedactEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return "***@***"
	}
	name := parts[0]
	if len(name) > 2 {
		return name[:2] + "***@" + parts[1]
	}
	return "***@" + parts[1]
}

// RedactPhone masks a phone number, keeping country/area prefix and the
// last two digits: "+5511999990000" → "+5511*******00"
func RedactPhone(phone string) string {
	trimmed := strings.TrimSpace(phone)
	if len(trimmed) < 6 {
		return "***"
	}
	head := trimmed[:5]
	tail := trimmed[len(trimmed)-2:]
	return head + strings.Repeat("*", len(trimmed)-7) + tail
}
