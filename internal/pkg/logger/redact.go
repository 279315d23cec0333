package logger

// RedactUserID masks a user identifier for safe logging.
// "7f3c9a1e-5b2d-4e8f-9c1a-0d6b4f2e8a7c" → "7f3c***"
// Short IDs (≤4 chars) are fully masked.
func RedactUserID(id string) string {
	if len(id) > 4 {
		return id[:4] + "***"
	}
	return "***"
}

// RedactToken fully masks a device push token.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	return "***"
}
