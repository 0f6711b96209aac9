package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	apperrors "github.com/vereoman/better-summerize/errors"
	"github.com/vereoman/better-summerize/middleware"
	"github.com/vereoman/better-summerize/models"
	"github.com/vereoman/better-summerize/ratelimit"
	"github.com/vereoman/better-summerize/utils"
	"github.com/vereoman/better-summerize/validation"
	"github.com/vereoman/better-summerize/webfetch"
	"github.com/vereoman/better-summerize/youtube"
)

const maxBodyBytes = 50 << 20

type Summarizer interface {
	Summarize(ctx context.Context, req models.SummarizationRequest) models.SummarizationResult
	Answer(ctx context.Context, req models.ChatRequest) string
}

type VideoResolver interface {
	Resolve(ctx context.Context, rawURL string) (*models.VideoContent, error)
}

type PageFetcher interface {
	Fetch(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}

type StateReporter interface {
	Snapshot(now time.Time) ratelimit.State
}

type Options struct {
	MaxTextLength     int
	RequestTimeout    time.Duration
	RateLimit         int
	RateLimitInterval time.Duration
}

type Handler struct {
	summarizer  Summarizer
	resolver    VideoResolver
	fetcher     PageFetcher
	state       StateReporter
	rateLimiter *rate.Limiter
	opts        Options
	now         func() time.Time
}

func New(summarizer Summarizer, resolver VideoResolver, fetcher PageFetcher, state StateReporter, opts Options) *Handler {
	return &Handler{
		summarizer:  summarizer,
		resolver:    resolver,
		fetcher:     fetcher,
		state:       state,
		rateLimiter: rate.NewLimiter(rate.Every(opts.RateLimitInterval), opts.RateLimit),
		opts:        opts,
		now:         time.Now,
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/summarize/text", h.limit(h.SummarizeText))
	mux.HandleFunc("POST /api/summarize/youtube", h.limit(h.SummarizeYouTube))
	mux.HandleFunc("POST /api/summarize/url", h.limit(h.SummarizeURL))
	mux.HandleFunc("POST /api/chat", h.limit(h.Chat))
	mux.HandleFunc("POST /api/chat/summarize", h.limit(h.ChatSummarize))
	mux.HandleFunc("GET /health", h.Health)
	return mux
}

func (h *Handler) limit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.rateLimiter.Allow() {
			utils.HandleError(w, "Rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (h *Handler) withTimeout(r *http.Request) (context.Context, context.CancelFunc) {
	if h.opts.RequestTimeout > 0 {
		return context.WithTimeout(r.Context(), h.opts.RequestTimeout)
	}
	return context.WithCancel(r.Context())
}

type textRequest struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type summaryResponse struct {
	Summary string        `json:"summary"`
	Source  models.Source `json:"source"`
	Title   string        `json:"title,omitempty"`
}

func (h *Handler) SummarizeText(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Required("Text", req.Text); err != nil {
		writeError(w, r, err)
		return
	}
	ct, err := validation.ContentType(req.Type, "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res := h.summarizer.Summarize(ctx, models.SummarizationRequest{
		Content:     utils.Truncate(req.Text, h.opts.MaxTextLength),
		ContentType: ct,
	})
	utils.WriteJSON(w, http.StatusOK, summaryResponse{Summary: res.Text, Source: res.Source})
}

type youtubeRequest struct {
	URL string `json:"url"`
}

type youtubeResponse struct {
	Success      bool          `json:"success"`
	Summary      string        `json:"summary"`
	Source       models.Source `json:"source"`
	Title        string        `json:"title"`
	Author       string        `json:"author"`
	Duration     int           `json:"duration"`
	MetadataOnly bool          `json:"metadataOnly"`
}

func (h *Handler) SummarizeYouTube(w http.ResponseWriter, r *http.Request) {
	var req youtubeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Required("URL", req.URL); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	video, err := h.resolver.Resolve(ctx, req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	middleware.GetLogger(r.Context()).WithFields(logrus.Fields{
		"video_id":      video.VideoID,
		"metadata_only": video.IsMetadataOnly,
	}).Info("Resolved video")

	res := h.summarizer.Summarize(ctx, models.SummarizationRequest{
		Content:        video.SummaryInput(),
		ContentType:    models.ContentLecture,
		IsMetadataOnly: video.IsMetadataOnly,
	})
	utils.WriteJSON(w, http.StatusOK, youtubeResponse{
		Success:      true,
		Summary:      res.Text,
		Source:       res.Source,
		Title:        video.Title,
		Author:       video.Author,
		Duration:     video.DurationSeconds,
		MetadataOnly: video.IsMetadataOnly,
	})
}

type urlRequest struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

func (h *Handler) SummarizeURL(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Required("URL", req.URL); err != nil {
		writeError(w, r, err)
		return
	}
	ct, err := validation.ContentType(req.Type, "")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	if youtube.IsYouTubeURL(req.URL) {
		h.summarizeVideoURL(ctx, w, r, req.URL, ct)
		return
	}

	if err := validation.ValidateURL(req.URL); err != nil {
		writeError(w, r, err)
		return
	}

	content, title := h.pageContent(ctx, r, req.URL)
	res := h.summarizer.Summarize(ctx, models.SummarizationRequest{Content: content, ContentType: ct})
	utils.WriteJSON(w, http.StatusOK, summaryResponse{Summary: res.Text, Source: res.Source, Title: title})
}

func (h *Handler) summarizeVideoURL(ctx context.Context, w http.ResponseWriter, r *http.Request, rawURL string, ct models.ContentType) {
	video, err := h.resolver.Resolve(ctx, rawURL)
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			writeError(w, r, err)
			return
		}
		middleware.GetLogger(r.Context()).WithError(err).Warn("Video resolution failed, summarizing placeholder")
		video = &models.VideoContent{
			Title:          models.UnknownTitle,
			Author:         models.UnknownAuthor,
			Description:    models.DescriptionUnavailable,
			TranscriptText: "Unable to retrieve transcript for this video.",
		}
	}

	res := h.summarizer.Summarize(ctx, models.SummarizationRequest{
		Content:        video.SummaryInput(),
		ContentType:    ct,
		IsMetadataOnly: video.IsMetadataOnly,
	})
	utils.WriteJSON(w, http.StatusOK, summaryResponse{Summary: res.Text, Source: res.Source, Title: video.Title})
}

// pageContent fetches a generic page and returns the summarizer input and the
// page title. Fetch failures produce a note instead of an error.
func (h *Handler) pageContent(ctx context.Context, r *http.Request, rawURL string) (string, string) {
	logger := middleware.GetLogger(r.Context()).WithField("url", rawURL)

	page, err := h.fetcher.Fetch(ctx, rawURL, nil)
	if err != nil {
		logger.WithError(err).Warn("Failed to fetch URL")
		return fmt.Sprintf("URL: %s\n\nCould not fetch content from this URL.", rawURL), ""
	}
	text, err := webfetch.ExtractText(page)
	if err != nil {
		logger.WithError(err).Warn("Failed to extract page text")
		return fmt.Sprintf("URL: %s\n\nCould not fetch content from this URL.", rawURL), ""
	}
	return fmt.Sprintf("URL: %s\n\n%s", rawURL, utils.Truncate(text, h.opts.MaxTextLength)), webfetch.Title(page)
}

type chatRequest struct {
	Message     string               `json:"message"`
	ContentType string               `json:"contentType"`
	History     []models.ChatMessage `json:"history"`
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Required("Message", req.Message); err != nil {
		writeError(w, r, err)
		return
	}
	ct, err := validation.ContentType(req.ContentType, models.ContentText)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	reply := h.summarizer.Answer(ctx, models.ChatRequest{
		Message:     req.Message,
		ContentType: ct,
		History:     req.History,
	})
	utils.WriteJSON(w, http.StatusOK, map[string]string{"response": reply})
}

type chatSummaryResponse struct {
	Success  bool          `json:"success"`
	Response string        `json:"response"`
	Source   models.Source `json:"source"`
}

func (h *Handler) ChatSummarize(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !decode(w, r, &req) {
		return
	}
	if err := validation.Required("Text", req.Text); err != nil {
		writeError(w, r, err)
		return
	}
	ct, err := validation.ContentType(req.Type, models.ContentText)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := h.withTimeout(r)
	defer cancel()

	res := h.summarizer.Summarize(ctx, models.SummarizationRequest{
		Content:     utils.Truncate(req.Text, h.opts.MaxTextLength),
		ContentType: ct,
	})
	utils.WriteJSON(w, http.StatusOK, chatSummaryResponse{Success: true, Response: res.Text, Source: res.Source})
}

type healthResponse struct {
	Status       string          `json:"status"`
	Timestamp    time.Time       `json:"timestamp"`
	RateLimiting ratelimit.State `json:"rateLimiting"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	utils.WriteJSON(w, http.StatusOK, healthResponse{
		Status:       "OK",
		Timestamp:    now.UTC(),
		RateLimiting: h.state.Snapshot(now),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, r, apperrors.InvalidInput("decode", err, "Invalid JSON body"))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logger := middleware.GetLogger(r.Context()).WithError(err)
	status := apperrors.StatusCode(err)

	var message string
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	} else {
		message = "An error occurred while processing your request. Please try again later."
	}

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed")
	} else {
		logger.Warn("Request rejected")
	}
	utils.HandleError(w, message, status)
}
