package logger

import "strings"

// RedactEmail masks an email address for safe logging.
// "jane.doe@firm.co.uk" → "ja***@firm.co.uk"
// Short local parts (≤2 chars) are fully masked: "ab@firm.co.uk" → "***@firm.co.uk"
func RedactEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return "***@***"
	}
	if len(local) > 2 {
		return local[:2] + "***@" + domain
	}
	return "***@" + domain
}
