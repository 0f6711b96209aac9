package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/vereoman/better-summerize/models"
	"github.com/vereoman/better-summerize/webfetch"
)

const timedText = `<?xml version="1.0" encoding="utf-8" ?><transcript>` +
	`<text start="0" dur="1.5">Tom &amp; Jerry</text>` +
	`<text start="1.5" dur="2">say &quot;hi&quot; &lt;b&gt;</text>` +
	`<text start="3.5" dur="1"><font color="#fff">it&#39;s</font> fine</text>` +
	`</transcript>`

type fakeYouTube struct {
	*httptest.Server
	player     func(w http.ResponseWriter)
	transcript bool
}

func newFakeYouTube(t *testing.T) *fakeYouTube {
	t.Helper()
	f := &fakeYouTube{}
	mux := http.NewServeMux()
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		var req playerRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ANDROID", req.Context.Client.ClientName)
		assert.Equal(t, "dQw4w9WgXcQ", req.VideoID)
		f.player(w)
	})
	mux.HandleFunc("/youtubei/v1/next", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.Header.Get("X-Youtube-Client-Name"))
		if !f.transcript {
			fmt.Fprint(w, `{"contents":{}}`)
			return
		}
		fmt.Fprint(w, `{"engagementPanels":[{"x":{"getTranscriptEndpoint":{"params":"Cg%3D%3D"}}}]}`)
	})
	mux.HandleFunc("/youtubei/v1/get_transcript", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"params":"Cg=="`)
		fmt.Fprint(w, `{"actions":[{"updateEngagementPanelAction":{"content":{"transcriptRenderer":{"content":{"transcriptSearchPanelRenderer":{"body":{"transcriptSegmentListRenderer":{"initialSegments":[
			{"transcriptSegmentRenderer":{"snippet":{"runs":[{"text":"never gonna"}]}}},
			{"transcriptSectionHeaderRenderer":{}},
			{"transcriptSegmentRenderer":{"snippet":{"runs":[{"text":"give you "},{"text":"up"}]}}}
		]}}}}}}}}]}`)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.URL.Query().Get("lang"))
		fmt.Fprint(w, timedText)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("v"))
		fmt.Fprint(w, `<html><head><title>Never Gonna Give You Up - YouTube</title></head><body></body></html>`)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)

	f.player = func(w http.ResponseWriter) {
		fmt.Fprintf(w, `{
			"videoDetails":{"title":"Never Gonna Give You Up","author":"Rick Astley","lengthSeconds":"213","shortDescription":"Official video"},
			"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[
				{"baseUrl":"%[1]s/api/timedtext?lang=de","languageCode":"de","name":{"simpleText":"German"}},
				{"baseUrl":"%[1]s/api/timedtext?lang=en","languageCode":"en-US","name":{"runs":[{"text":"English (auto-generated)"}]}}
			]}}
		}`, f.URL)
	}
	return f
}

func (f *fakeYouTube) innertube() *Innertube {
	return NewInnertube(f.Client(), f.URL)
}

func (f *fakeYouTube) fetcher() *webfetch.Fetcher {
	return webfetch.New(f.Client(), time.Second)
}

func TestInnertubeMetadata(t *testing.T) {
	f := newFakeYouTube(t)

	md, err := f.innertube().FetchMetadata(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, models.VideoMetadata{
		Title:           "Never Gonna Give You Up",
		Author:          "Rick Astley",
		DurationSeconds: 213,
		Description:     "Official video",
	}, md)
}

func TestInnertubeMetadataLoginRequired(t *testing.T) {
	f := newFakeYouTube(t)
	f.player = func(w http.ResponseWriter) {
		fmt.Fprint(w, `{"playabilityStatus":{"status":"LOGIN_REQUIRED","reason":"Sign in to confirm you're not a bot"}}`)
	}

	_, err := f.innertube().FetchMetadata(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Sign in")
}

func TestInnertubeHTTPError(t *testing.T) {
	f := newFakeYouTube(t)
	f.player = func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, "blocked")
	}

	_, err := f.innertube().FetchMetadata(context.Background(), "dQw4w9WgXcQ")
	require.Error(t, err)
	assert.Equal(t, "innertube /youtubei/v1/player: HTTP 403: blocked", err.Error())

	_, hasStack := errors.Cause(err).(interface{ StackTrace() errors.StackTrace })
	assert.True(t, hasStack)
}

func TestCaptionTracksPrefersEnglish(t *testing.T) {
	f := newFakeYouTube(t)

	text, err := NewCaptionTracks(f.innertube(), f.fetcher()).FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, `Tom & Jerry say "hi" <b> it's fine`, text)
}

func TestCaptionTracksNone(t *testing.T) {
	f := newFakeYouTube(t)
	f.player = func(w http.ResponseWriter) {
		fmt.Fprint(w, `{"videoDetails":{"title":"x"}}`)
	}

	_, err := NewCaptionTracks(f.innertube(), f.fetcher()).FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	assert.Error(t, err)
}

func TestPickTrack(t *testing.T) {
	de := captionTrack{LanguageCode: "de"}
	fr := captionTrack{LanguageCode: "fr"}
	en := captionTrack{LanguageCode: "en"}
	named := captionTrack{LanguageCode: "en-GB", Name: trackName{SimpleText: "English (UK)"}}

	assert.Equal(t, en, pickTrack([]captionTrack{de, en}))
	assert.Equal(t, named, pickTrack([]captionTrack{de, named}))
	assert.Equal(t, de, pickTrack([]captionTrack{de, fr}))
}

func TestTranscriptPanel(t *testing.T) {
	f := newFakeYouTube(t)
	f.transcript = true

	text, err := NewTranscriptPanel(f.innertube()).FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "never gonna give you up", text)
}

func TestTranscriptPanelNoToken(t *testing.T) {
	f := newFakeYouTube(t)

	_, err := NewTranscriptPanel(f.innertube()).FetchTranscript(context.Background(), "dQw4w9WgXcQ")
	assert.Error(t, err)
}

func TestWatchPage(t *testing.T) {
	f := newFakeYouTube(t)

	md, err := NewWatchPage(f.fetcher(), f.URL).FetchMetadata(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Never Gonna Give You Up", md.Title)
	assert.Equal(t, models.UnknownAuthor, md.Author)
	assert.Equal(t, models.DescriptionUnavailable, md.Description)
}

func TestResolveEndToEnd(t *testing.T) {
	f := newFakeYouTube(t)
	it := f.innertube()
	metadata, transcripts := DefaultStrategies(it, NewWatchPage(f.fetcher(), f.URL), NewCaptionTracks(it, f.fetcher()), nil)

	got, err := NewResolver(metadata, transcripts, time.Second).Resolve(context.Background(), "https://youtu.be/dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Rick Astley", got.Author)
	assert.Equal(t, `Tom & Jerry say "hi" <b> it's fine`, got.TranscriptText)
	assert.False(t, got.IsMetadataOnly)
}

func TestDataAPIMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/youtube/v3/videos", r.URL.Path)
		assert.Equal(t, "dQw4w9WgXcQ", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"id":"dQw4w9WgXcQ",
			"snippet":{"title":"Never Gonna Give You Up","channelTitle":"Rick Astley","description":""},
			"contentDetails":{"duration":"PT3M33S"}}]}`)
	}))
	defer srv.Close()

	d, err := NewDataAPIMetadata(context.Background(), "key",
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	md, err := d.FetchMetadata(context.Background(), "dQw4w9WgXcQ")
	require.NoError(t, err)
	assert.Equal(t, "Rick Astley", md.Author)
	assert.Equal(t, 213, md.DurationSeconds)
	assert.Equal(t, models.DescriptionUnavailable, md.Description)
}

func TestParseISODuration(t *testing.T) {
	tests := map[string]int{
		"PT3M33S":  213,
		"PT1H":     3600,
		"P1DT2S":   86402,
		"PT0S":     0,
		"garbage":  0,
		"":         0,
		"PT10M":    600,
		"PT1H1M1S": 3661,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseISODuration(in), in)
	}
}

func TestParseTimedText(t *testing.T) {
	assert.Equal(t, `Tom & Jerry say "hi" <b> it's fine`, parseTimedText(timedText))
	assert.Empty(t, parseTimedText("<transcript></transcript>"))
}
