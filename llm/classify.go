package llm

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var quotaMarkers = []string{"429", "quota", "rate limit", "resource exhausted", "resource_exhausted"}

// Classify wraps quota and rate-limit failures in a *QuotaError and returns
// every other error unchanged. Context expiry is never a quota error.
func Classify(err error) error {
	if err == nil || IsQuota(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return err
	}
	switch status.Code(err) {
	case codes.DeadlineExceeded, codes.Canceled:
		return err
	case codes.ResourceExhausted:
		return &QuotaError{Err: err}
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusTooManyRequests {
		return &QuotaError{Err: err}
	}

	var aerr *openai.APIError
	if errors.As(err, &aerr) && aerr.HTTPStatusCode == http.StatusTooManyRequests {
		return &QuotaError{Err: err}
	}

	var rerr *openai.RequestError
	if errors.As(err, &rerr) && rerr.HTTPStatusCode == http.StatusTooManyRequests {
		return &QuotaError{Err: err}
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range quotaMarkers {
		if strings.Contains(msg, marker) {
			return &QuotaError{Err: err}
		}
	}
	return err
}
