package models

// RedactToken keeps the first 8 characters of an evaluation token for logs.
func RedactToken(token string) string {
	if len(token) <= 8 {
		return "********"
	}
	return token[:8] + "..."
}
