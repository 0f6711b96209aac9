package utils

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"
)

// TruncationSuffix marks content cut down to the processing limit.
const TruncationSuffix = "... (content truncated for processing)"

func HandleError(w http.ResponseWriter, message string, statusCode int) {
	WriteJSON(w, statusCode, map[string]string{"error": message})
}

func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
	}
}

// Truncate cuts text to limit characters and appends TruncationSuffix.
// Text within the limit is returned unchanged.
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + TruncationSuffix
}
