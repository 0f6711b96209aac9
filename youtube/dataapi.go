package youtube

import (
	"context"
	"regexp"
	"strconv"

	"github.com/pkg/errors"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	"github.com/vereoman/better-summerize/models"
)

// DataAPIMetadata reads metadata from the YouTube Data API v3. It needs an
// API key and is skipped when none is configured.
type DataAPIMetadata struct {
	svc *ytapi.Service
}

func NewDataAPIMetadata(ctx context.Context, apiKey string, opts ...option.ClientOption) (*DataAPIMetadata, error) {
	svc, err := ytapi.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create youtube service")
	}
	return &DataAPIMetadata{svc: svc}, nil
}

func (d *DataAPIMetadata) Name() string { return "data_api" }

func (d *DataAPIMetadata) FetchMetadata(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	resp, err := d.svc.Videos.List([]string{"snippet", "contentDetails"}).Id(videoID).Context(ctx).Do()
	if err != nil {
		return models.VideoMetadata{}, errors.Wrap(err, "videos.list")
	}
	if len(resp.Items) == 0 || resp.Items[0].Snippet == nil {
		return models.VideoMetadata{}, errors.Errorf("video %s not found", videoID)
	}

	item := resp.Items[0]
	md := models.VideoMetadata{
		Title:       item.Snippet.Title,
		Author:      item.Snippet.ChannelTitle,
		Description: item.Snippet.Description,
	}
	if item.ContentDetails != nil {
		md.DurationSeconds = parseISODuration(item.ContentDetails.Duration)
	}
	if md.Author == "" {
		md.Author = models.UnknownAuthor
	}
	if md.Description == "" {
		md.Description = models.DescriptionUnavailable
	}
	return md, nil
}

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseISODuration converts an ISO 8601 duration such as PT1H2M3S to seconds.
// Unparsable input yields 0.
func parseISODuration(s string) int {
	m := isoDurationPattern.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, _ := strconv.Atoi(m[i+1])
		total += n * unit
	}
	return total
}
