package models

import (
	"fmt"
	"strings"
)

type ContentType string

const (
	ContentText    ContentType = "text"
	ContentLecture ContentType = "lecture"
	ContentBook    ContentType = "book"
	ContentNotes   ContentType = "notes"
)

// ParseContentType maps a request tag to a ContentType. Unknown tags are rejected.
func ParseContentType(s string) (ContentType, bool) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case ContentText:
		return ContentText, true
	case ContentLecture:
		return ContentLecture, true
	case ContentBook:
		return ContentBook, true
	case ContentNotes:
		return ContentNotes, true
	}
	return "", false
}

// Source records how a summary was produced.
type Source string

const (
	SourceGenerated  Source = "generated_by_model"
	SourceExtractive Source = "extractive_fallback"
	SourceVerbatim   Source = "verbatim"
)

type SummarizationRequest struct {
	Content        string      `json:"content"`
	ContentType    ContentType `json:"content_type"`
	IsMetadataOnly bool        `json:"is_metadata_only"`
}

type SummarizationResult struct {
	Text   string `json:"text"`
	Source Source `json:"source"`
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Message     string        `json:"message"`
	ContentType ContentType   `json:"content_type"`
	History     []ChatMessage `json:"history"`
}

// FormatDuration renders seconds the way summary inputs present them.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d minutes %d seconds", seconds/60, seconds%60)
}
