package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/vereoman/better-summerize/models"
)

const (
	DefaultBaseURL = "https://www.youtube.com"

	webClientVersion     = "2.20250222.10.00"
	androidClientVersion = "20.10.38"
	androidUserAgent     = "com.google.android.youtube/" + androidClientVersion + " (Linux; U; Android 11) gzip"
	chromeUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	maxResponseBytes = 3 << 20
)

// Innertube talks to YouTube's internal player and transcript endpoints.
type Innertube struct {
	client  *http.Client
	baseURL string
}

func NewInnertube(client *http.Client, baseURL string) *Innertube {
	if client == nil {
		client = &http.Client{}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Innertube{client: client, baseURL: strings.TrimRight(baseURL, "/")}
}

type playerRequest struct {
	VideoID        string        `json:"videoId"`
	Context        playerContext `json:"context"`
	RacyCheckOk    bool          `json:"racyCheckOk"`
	ContentCheckOk bool          `json:"contentCheckOk"`
}

type playerContext struct {
	Client clientInfo `json:"client"`
}

type clientInfo struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	VisitorData       string `json:"visitorData,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

type playerResponse struct {
	VideoDetails *struct {
		Title            string `json:"title"`
		Author           string `json:"author"`
		LengthSeconds    string `json:"lengthSeconds"`
		ShortDescription string `json:"shortDescription"`
	} `json:"videoDetails"`
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
}

type captionTrack struct {
	BaseURL      string    `json:"baseUrl"`
	LanguageCode string    `json:"languageCode"`
	Kind         string    `json:"kind"`
	Name         trackName `json:"name"`
}

type trackName struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (n trackName) String() string {
	if n.SimpleText != "" {
		return n.SimpleText
	}
	var sb strings.Builder
	for _, r := range n.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

func (it *Innertube) player(ctx context.Context, videoID string) (*playerResponse, error) {
	payload := playerRequest{
		VideoID: videoID,
		Context: playerContext{Client: clientInfo{
			ClientName:        "ANDROID",
			ClientVersion:     androidClientVersion,
			AndroidSdkVersion: 30,
			Hl:                "en",
			Gl:                "US",
		}},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}
	headers := map[string]string{
		"User-Agent":               androidUserAgent,
		"X-Youtube-Client-Name":    "3",
		"X-Youtube-Client-Version": androidClientVersion,
	}

	data, err := it.post(ctx, "/youtubei/v1/player", payload, headers)
	if err != nil {
		return nil, err
	}
	var resp playerResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, errors.Wrap(err, "decode player response")
	}
	return &resp, nil
}

// postWeb sends a request as the desktop web client.
func (it *Innertube) postWeb(ctx context.Context, path string, payload any, visitorData string) ([]byte, error) {
	return it.post(ctx, path, payload, map[string]string{
		"User-Agent":               chromeUserAgent,
		"X-Youtube-Client-Name":    "1",
		"X-Youtube-Client-Version": webClientVersion,
		"X-Goog-Visitor-Id":        visitorData,
		"Origin":                   DefaultBaseURL,
		"Referer":                  DefaultBaseURL + "/",
	})
}

func (it *Innertube) post(ctx context.Context, path string, payload any, headers map[string]string) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.baseURL+path+"?prettyPrint=false", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "*/*")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := it.client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "innertube %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, errors.Errorf("innertube %s: HTTP %d: %s", path, resp.StatusCode, snippet)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
}

func (it *Innertube) Name() string { return "innertube_player" }

// FetchMetadata reads title, author, length and description from the player
// response.
func (it *Innertube) FetchMetadata(ctx context.Context, videoID string) (models.VideoMetadata, error) {
	resp, err := it.player(ctx, videoID)
	if err != nil {
		return models.VideoMetadata{}, err
	}
	if resp.VideoDetails == nil || resp.VideoDetails.Title == "" {
		return models.VideoMetadata{}, errors.Errorf("no video details: %s", playabilityReason(resp))
	}

	d := resp.VideoDetails
	seconds, _ := strconv.Atoi(d.LengthSeconds)
	md := models.VideoMetadata{
		Title:           d.Title,
		Author:          d.Author,
		DurationSeconds: max(seconds, 0),
		Description:     d.ShortDescription,
	}
	if md.Author == "" {
		md.Author = models.UnknownAuthor
	}
	if md.Description == "" {
		md.Description = models.DescriptionUnavailable
	}
	return md, nil
}

func playabilityReason(resp *playerResponse) string {
	if resp.PlayabilityStatus == nil {
		return "unknown"
	}
	if resp.PlayabilityStatus.Reason != "" {
		return resp.PlayabilityStatus.Reason
	}
	return resp.PlayabilityStatus.Status
}

func visitorData() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
	b := make([]byte, 11)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b)
}
