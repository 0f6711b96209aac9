package models

import (
	"fmt"
	"strings"
)

const (
	UnknownAuthor          = "Unknown Author"
	UnknownTitle           = "Unknown Title"
	DescriptionUnavailable = "Description unavailable"
)

type VideoMetadata struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	DurationSeconds int    `json:"duration_seconds"`
	Description     string `json:"description"`
}

// PlaceholderMetadata is the last-resort metadata when every provider failed.
func PlaceholderMetadata(videoID string) VideoMetadata {
	return VideoMetadata{
		Title:       fmt.Sprintf("YouTube Video (ID: %s)", videoID),
		Author:      UnknownAuthor,
		Description: DescriptionUnavailable,
	}
}

type VideoContent struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	DurationSeconds int    `json:"duration_seconds"`
	Description     string `json:"description"`
	TranscriptText  string `json:"transcript_text"`
	// IsMetadataOnly is set when TranscriptText was synthesized from metadata.
	IsMetadataOnly bool `json:"is_metadata_only"`
}

func NewVideoContent(videoID string, md VideoMetadata) *VideoContent {
	return &VideoContent{
		VideoID:         videoID,
		Title:           md.Title,
		Author:          md.Author,
		DurationSeconds: md.DurationSeconds,
		Description:     md.Description,
	}
}

// MetadataTranscript builds the stand-in transcript used when no captions exist.
func MetadataTranscript(md VideoMetadata) string {
	return fmt.Sprintf(`VIDEO METADATA (transcript unavailable):
Title: %s
Channel: %s
Description: %s

Note: This is metadata only. No transcript was available for this video.`,
		md.Title, md.Author, md.Description)
}

// SummaryInput assembles the text handed to the summarizer.
func (v *VideoContent) SummaryInput() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", v.Title)
	fmt.Fprintf(&sb, "Author: %s\n", v.Author)
	fmt.Fprintf(&sb, "Duration: %s\n\n", FormatDuration(v.DurationSeconds))
	if v.IsMetadataOnly {
		sb.WriteString(v.TranscriptText)
	} else {
		sb.WriteString("Transcript:\n")
		sb.WriteString(v.TranscriptText)
	}
	return sb.String()
}
