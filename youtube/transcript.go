package youtube

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"github.com/pkg/errors"

	"github.com/vereoman/better-summerize/webfetch"
)

var transcriptParamsPattern = regexp.MustCompile(`"getTranscriptEndpoint":\{"params":"([^"]+)"`)

// TranscriptPanel fetches timed segments through the engagement panel:
// /next yields a continuation token, /get_transcript yields the segments.
type TranscriptPanel struct {
	it *Innertube
}

func NewTranscriptPanel(it *Innertube) *TranscriptPanel {
	return &TranscriptPanel{it: it}
}

func (p *TranscriptPanel) Name() string { return "transcript_panel" }

type transcriptResponse struct {
	Actions []struct {
		UpdateEngagementPanelAction *struct {
			Content struct {
				TranscriptRenderer struct {
					Content struct {
						TranscriptSearchPanelRenderer struct {
							Body struct {
								TranscriptSegmentListRenderer struct {
									InitialSegments []struct {
										TranscriptSegmentRenderer *struct {
											Snippet struct {
												Runs []struct {
													Text string `json:"text"`
												} `json:"runs"`
											} `json:"snippet"`
										} `json:"transcriptSegmentRenderer"`
									} `json:"initialSegments"`
								} `json:"transcriptSegmentListRenderer"`
							} `json:"body"`
						} `json:"transcriptSearchPanelRenderer"`
					} `json:"content"`
				} `json:"transcriptRenderer"`
			} `json:"content"`
		} `json:"updateEngagementPanelAction"`
	} `json:"actions"`
}

// segments returns the text of each segment in order.
func (r transcriptResponse) segments() []string {
	var out []string
	for _, action := range r.Actions {
		if action.UpdateEngagementPanelAction == nil {
			continue
		}
		segs := action.UpdateEngagementPanelAction.Content.
			TranscriptRenderer.Content.
			TranscriptSearchPanelRenderer.Body.
			TranscriptSegmentListRenderer.InitialSegments
		for _, seg := range segs {
			if seg.TranscriptSegmentRenderer == nil {
				continue
			}
			var sb strings.Builder
			for _, run := range seg.TranscriptSegmentRenderer.Snippet.Runs {
				sb.WriteString(run.Text)
			}
			if text := strings.TrimSpace(sb.String()); text != "" {
				out = append(out, text)
			}
		}
	}
	return out
}

func (p *TranscriptPanel) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	visitor := visitorData()
	webClient := clientInfo{
		ClientName:    "WEB",
		ClientVersion: webClientVersion,
		VisitorData:   visitor,
		Hl:            "en",
		Gl:            "US",
	}

	next, err := p.it.postWeb(ctx, "/youtubei/v1/next", map[string]any{
		"videoId": videoID,
		"context": map[string]any{"client": webClient},
	}, visitor)
	if err != nil {
		return "", errors.Wrap(err, "next")
	}

	m := transcriptParamsPattern.FindSubmatch(next)
	if m == nil {
		return "", errors.New("transcript endpoint not found in engagement panels")
	}
	params, err := url.QueryUnescape(string(m[1]))
	if err != nil {
		params = string(m[1])
	}

	data, err := p.it.postWeb(ctx, "/youtubei/v1/get_transcript", map[string]any{
		"params":  params,
		"context": map[string]any{"client": webClient},
	}, visitor)
	if err != nil {
		return "", errors.Wrap(err, "get_transcript")
	}

	var resp transcriptResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", errors.Wrap(err, "decode transcript")
	}
	segs := resp.segments()
	if len(segs) == 0 {
		return "", errors.New("empty transcript segments")
	}
	return strings.Join(segs, " "), nil
}

// CaptionTracks discovers caption tracks through the player endpoint and
// downloads the English track, or the first track when none is English.
type CaptionTracks struct {
	it      *Innertube
	fetcher *webfetch.Fetcher
}

func NewCaptionTracks(it *Innertube, fetcher *webfetch.Fetcher) *CaptionTracks {
	return &CaptionTracks{it: it, fetcher: fetcher}
}

func (c *CaptionTracks) Name() string { return "caption_tracks" }

func (c *CaptionTracks) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	resp, err := c.it.player(ctx, videoID)
	if err != nil {
		return "", err
	}
	if resp.Captions == nil || len(resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks) == 0 {
		return "", errors.Errorf("no caption tracks: %s", playabilityReason(resp))
	}

	track := pickTrack(resp.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks)
	payload, err := c.fetcher.Fetch(ctx, track.BaseURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "fetch caption track")
	}

	text := parseTimedText(string(payload))
	if text == "" {
		return "", errors.New("caption track has no text")
	}
	return text, nil
}

func pickTrack(tracks []captionTrack) captionTrack {
	for _, t := range tracks {
		if t.LanguageCode == "en" || strings.Contains(strings.ToLower(t.Name.String()), "english") {
			return t
		}
	}
	return tracks[0]
}

var (
	timedTextPattern = regexp.MustCompile(`(?s)<text[^>]*>(.*?)</text>`)
	tagPattern       = regexp.MustCompile(`<[^>]+>`)
	entityReplacer   = strings.NewReplacer(
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// parseTimedText joins the <text> lines of a timedtext payload with markup
// stripped and the five standard entities unescaped.
func parseTimedText(payload string) string {
	var lines []string
	for _, m := range timedTextPattern.FindAllStringSubmatch(payload, -1) {
		line := entityReplacer.Replace(tagPattern.ReplaceAllString(m[1], ""))
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}
