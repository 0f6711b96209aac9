package youtube

import (
	"context"

	"github.com/vereoman/better-summerize/models"
)

// MetadataStrategy is one provider in the metadata fallback chain.
type MetadataStrategy interface {
	Name() string
	FetchMetadata(ctx context.Context, videoID string) (models.VideoMetadata, error)
}

// TranscriptStrategy is one provider in the transcript fallback chain.
type TranscriptStrategy interface {
	Name() string
	FetchTranscript(ctx context.Context, videoID string) (string, error)
}
