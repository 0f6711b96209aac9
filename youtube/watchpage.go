package youtube

import (
	"bytes"
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"

	"github.com/vereoman/better-summerize/models"
	"github.com/vereoman/better-summerize/webfetch"
)

// WatchPage scrapes the title from the public watch page. Only the title is
// recoverable this way.
type WatchPage struct {
	fetcher *webfetch.Fetcher
	baseURL string
}

func NewWatchPage(fetcher *webfetch.Fetcher, baseURL string) *WatchPage {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &WatchPage{fetcher: fetcher, baseURL: strings.TrimRight(baseURL, "/")}
}

func (w *WatchPage) Name() string { return "watch_page" }

func (w *WatchPage) FetchMetadata(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	page, err := w.fetcher.Fetch(ctx, w.baseURL+"/watch?v="+videoID, nil)
	if err != nil {
		return models.VideoMetadata{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return models.VideoMetadata{}, errors.Wrap(err, "parse watch page")
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	title = strings.TrimSpace(strings.Replace(title, " - YouTube", "", 1))
	if title == "" {
		title = models.UnknownTitle
	}
	return models.VideoMetadata{
		Title:       title,
		Author:      models.UnknownAuthor,
		Description: models.DescriptionUnavailable,
	}, nil
}
