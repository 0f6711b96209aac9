// Package webfetch retrieves arbitrary web pages and reduces them to text.
package webfetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// DesktopUserAgent is sent on every page fetch.
const DesktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

const defaultMaxBytes = 5 << 20

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// Fetcher performs bounded GET requests.
type Fetcher struct {
	client   *http.Client
	timeout  time.Duration
	maxBytes int64
	logger   *logrus.Entry
}

func New(client *http.Client, timeout time.Duration) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	return &Fetcher{
		client:   client,
		timeout:  timeout,
		maxBytes: defaultMaxBytes,
		logger:   logrus.WithField("component", "webfetch"),
	}
}

// Fetch returns the response body of url. headers are added to the request,
// and a desktop User-Agent is set unless headers provide one.
func (f *Fetcher) Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("User-Agent", DesktopUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", url)
	}
	f.logger.WithFields(logrus.Fields{"url": url, "bytes": len(body)}).Debug("Fetched page")
	return body, nil
}

var whitespace = regexp.MustCompile(`\s+`)

// ExtractText drops head, nav, script and style elements and returns the
// remaining text with whitespace collapsed.
func ExtractText(page []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse html")
	}
	doc.Find("head, nav, script, style, noscript").Remove()

	var sb strings.Builder
	for _, n := range doc.Nodes {
		collectText(&sb, n)
	}
	return strings.TrimSpace(whitespace.ReplaceAllString(sb.String(), " ")), nil
}

// collectText writes every text node under n, separated by spaces so that
// adjacent block elements do not run together.
func collectText(sb *strings.Builder, n *html.Node) {
	if n.Type == html.TextNode {
		sb.WriteString(n.Data)
		sb.WriteByte(' ')
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(sb, c)
	}
}

// Title returns the trimmed <title> text of a page.
func Title(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}
