package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vereoman/better-summerize/config"
	"github.com/vereoman/better-summerize/handlers"
	"github.com/vereoman/better-summerize/llm"
	"github.com/vereoman/better-summerize/logger"
	"github.com/vereoman/better-summerize/middleware"
	"github.com/vereoman/better-summerize/ratelimit"
	"github.com/vereoman/better-summerize/summarizer"
	"github.com/vereoman/better-summerize/webfetch"
	"github.com/vereoman/better-summerize/youtube"
)

func main() {
	cfg := config.LoadConfig()

	if err := config.ValidateConfig(cfg); err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}

	logCloser, err := logger.Setup(logger.Options{
		Dir:        cfg.LogDir,
		Level:      cfg.LogLevel,
		Production: cfg.IsProduction(),
	})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}
	defer logCloser.Close()

	pool, err := ratelimit.NewKeyPool(cfg.APIKeys)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build API key pool")
	}
	limiter := ratelimit.NewLimiter(pool)

	gen, err := llm.New(llm.Options{Provider: cfg.LLMProvider, BaseURL: cfg.OpenAIBaseURL})
	if err != nil {
		logrus.WithError(err).Fatal("Failed to create generator")
	}
	if closer, ok := gen.(io.Closer); ok {
		defer closer.Close()
	}

	orch := summarizer.New(gen, limiter, summarizer.Config{
		StandardModel: cfg.StandardModel,
		DegradedModel: cfg.DegradedModel,
		Temperature:   float32(cfg.LLMTemperature),
		MaxTokens:     cfg.LLMMaxTokens,
		CallTimeout:   cfg.LLMTimeout,
		RotateDelay:   cfg.RotateDelay,
		RetryDelay:    cfg.RetryDelay,
	})

	resolver := newResolver(cfg)
	fetcher := webfetch.New(&http.Client{}, cfg.FetchTimeout)

	h := handlers.New(orch, resolver, fetcher, limiter, handlers.Options{
		MaxTextLength:     cfg.MaxTextLength,
		RequestTimeout:    cfg.RequestTimeout,
		RateLimit:         cfg.RateLimit,
		RateLimitInterval: cfg.RateLimitInterval,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      middleware.Chain(h.Routes(), middleware.Logging),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"port":      cfg.ServerPort,
			"provider":  cfg.LLMProvider,
			"pool_size": pool.Size(),
		}).Info("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatalf("Could not listen on :%s", cfg.ServerPort)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logrus.Info("Shutting down the server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
}

// newResolver assembles the metadata and transcript chains. The Data API
// provider is added only when a YouTube API key is configured.
func newResolver(cfg *config.Config) *youtube.Resolver {
	client := &http.Client{}
	fetcher := webfetch.New(client, cfg.YouTubeTimeout)
	it := youtube.NewInnertube(client, cfg.YouTubeBaseURL)

	var data *youtube.DataAPIMetadata
	if cfg.YouTubeAPIKey != "" {
		var err error
		data, err = youtube.NewDataAPIMetadata(context.Background(), cfg.YouTubeAPIKey)
		if err != nil {
			logrus.WithError(err).Warn("YouTube Data API unavailable, continuing without it")
			data = nil
		}
	}

	metadata, transcripts := youtube.DefaultStrategies(
		it,
		youtube.NewWatchPage(fetcher, cfg.YouTubeBaseURL),
		youtube.NewCaptionTracks(it, fetcher),
		data,
	)
	return youtube.NewResolver(metadata, transcripts, cfg.YouTubeTimeout)
}
