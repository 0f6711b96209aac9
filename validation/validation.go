package validation

import (
	"net/url"
	"strings"

	apperrors "github.com/vereoman/better-summerize/errors"
	"github.com/vereoman/better-summerize/models"
)

// ValidateURL checks that rawURL is an absolute http(s) URL with a host.
// It makes no network calls.
func ValidateURL(rawURL string) error {
	const op = "ValidateURL"

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return apperrors.InvalidInput(op, nil, "URL is required")
	}

	parsedURL, err := url.ParseRequestURI(rawURL)
	if err != nil {
		return apperrors.InvalidInput(op, err, "Invalid URL format")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return apperrors.InvalidInput(op, nil, "URL must start with http or https")
	}
	if parsedURL.Host == "" {
		return apperrors.InvalidInput(op, nil, "URL must have a host")
	}
	return nil
}

// ContentType parses a request's type field. An empty value yields fallback,
// or an error when fallback is empty too.
func ContentType(raw string, fallback models.ContentType) (models.ContentType, error) {
	const op = "ValidateContentType"

	if strings.TrimSpace(raw) == "" {
		if fallback == "" {
			return "", apperrors.InvalidInput(op, nil, "Type is required")
		}
		return fallback, nil
	}
	ct, ok := models.ParseContentType(raw)
	if !ok {
		return "", apperrors.InvalidInput(op, nil, "Type must be one of text, lecture, book, notes")
	}
	return ct, nil
}

// Required rejects blank values for the named field.
func Required(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return apperrors.ErrInvalidRequest(field + " is required")
	}
	return nil
}
