// Package youtube resolves a video URL into metadata and transcript text.
// Every provider may fail; the resolver degrades through ordered strategies
// and never fails for a well-formed URL.
package youtube

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/vereoman/better-summerize/errors"
	"github.com/vereoman/better-summerize/models"
)

var errEmptyTranscript = errors.New("empty transcript")

type Resolver struct {
	metadata    []MetadataStrategy
	transcripts []TranscriptStrategy
	timeout     time.Duration
	logger      *logrus.Entry
}

// NewResolver builds a resolver over the given chains. timeout bounds each
// strategy call; zero means no bound beyond the caller's context.
func NewResolver(metadata []MetadataStrategy, transcripts []TranscriptStrategy, timeout time.Duration) *Resolver {
	return &Resolver{
		metadata:    metadata,
		transcripts: transcripts,
		timeout:     timeout,
		logger:      logrus.WithField("component", "youtube"),
	}
}

// DefaultStrategies returns the standard chains. data may be nil.
func DefaultStrategies(it *Innertube, page *WatchPage, captions *CaptionTracks, data *DataAPIMetadata) ([]MetadataStrategy, []TranscriptStrategy) {
	var metadata []MetadataStrategy
	if data != nil {
		metadata = append(metadata, data)
	}
	metadata = append(metadata, it, page)
	return metadata, []TranscriptStrategy{NewTranscriptPanel(it), captions}
}

// Resolve extracts the video id from rawURL and fetches metadata and
// transcript concurrently. Only a malformed URL or a cancelled context is
// reported as an error.
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (*models.VideoContent, error) {
	const op = "Resolver.Resolve"

	videoID, err := ExtractVideoID(rawURL)
	if err != nil {
		return nil, err
	}
	logger := r.logger.WithFields(logrus.Fields{"op": op, "video_id": videoID})

	var (
		md         models.VideoMetadata
		transcript string
		found      bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		md = r.fetchMetadata(gctx, videoID, logger)
		return nil
	})
	g.Go(func() error {
		transcript, found = r.fetchTranscript(gctx, videoID, logger)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, apperrors.Upstream(op, err, "Failed to fetch video data")
	}

	content := models.NewVideoContent(videoID, md)
	if found {
		content.TranscriptText = transcript
	} else {
		logger.Warn("No transcript available, using metadata")
		content.TranscriptText = models.MetadataTranscript(md)
		content.IsMetadataOnly = true
	}
	return content, nil
}

func (r *Resolver) fetchMetadata(ctx context.Context, videoID string, logger *logrus.Entry) models.VideoMetadata {
	for _, s := range r.metadata {
		md, err := r.callMetadata(ctx, s, videoID)
		if err == nil {
			logger.WithField("strategy", s.Name()).Debug("Resolved metadata")
			return md
		}
		logger.WithError(err).WithField("strategy", s.Name()).Warn("Metadata strategy failed")
		if ctx.Err() != nil {
			break
		}
	}
	return models.PlaceholderMetadata(videoID)
}

func (r *Resolver) fetchTranscript(ctx context.Context, videoID string, logger *logrus.Entry) (string, bool) {
	for _, s := range r.transcripts {
		text, err := r.callTranscript(ctx, s, videoID)
		if err == nil && text == "" {
			err = errEmptyTranscript
		}
		if err == nil {
			logger.WithFields(logrus.Fields{"strategy": s.Name(), "chars": utf8.RuneCountInString(text)}).Info("Resolved transcript")
			return text, true
		}
		logger.WithError(err).WithField("strategy", s.Name()).Warn("Transcript strategy failed")
		if ctx.Err() != nil {
			break
		}
	}
	return "", false
}

func (r *Resolver) callMetadata(ctx context.Context, s MetadataStrategy, videoID string) (models.VideoMetadata, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return s.FetchMetadata(ctx, videoID)
}

func (r *Resolver) callTranscript(ctx context.Context, s TranscriptStrategy, videoID string) (string, error) {
	ctx, cancel := r.bound(ctx)
	defer cancel()
	return s.FetchTranscript(ctx, videoID)
}

func (r *Resolver) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout > 0 {
		return context.WithTimeout(ctx, r.timeout)
	}
	return context.WithCancel(ctx)
}
