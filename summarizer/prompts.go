package summarizer

import (
	"fmt"

	"github.com/vereoman/better-summerize/models"
)

const metadataNote = "# Summary Based on Limited Metadata\n\n_Note: This summary was created using only the video's metadata, as a transcript was unavailable._\n\n"

// BuildPrompt returns the instruction for a content type. Unknown types use
// the plain text template.
func BuildPrompt(content string, contentType models.ContentType, metadataOnly bool) string {
	switch contentType {
	case models.ContentLecture:
		if metadataOnly {
			return fmt.Sprintf("Summarize this video metadata:\n%s\n\nCreate a brief summary of what this video appears to be about.", content)
		}
		return fmt.Sprintf("Summarize this lecture concisely:\n%s\n\nCreate a structured summary with the main points and key concepts. Bold important terms with ** **.", content)
	case models.ContentBook:
		return fmt.Sprintf("Summarize this book content briefly:\n%s\n\nInclude main themes and key points.", content)
	case models.ContentNotes:
		return fmt.Sprintf("Organize these notes concisely:\n%s\n\nCreate a clear structure with the main points.", content)
	default:
		return fmt.Sprintf("Summarize this text concisely:\n%s\n\nCapture the main ideas and the most important details.", content)
	}
}

// AnnotateMetadataOnly marks a generated summary as derived from metadata.
func AnnotateMetadataOnly(summary string) string {
	return metadataNote + summary
}

func chatPrompt(summary, question string) string {
	if r := []rune(summary); len(r) > chatContextLimit {
		summary = string(r[:chatContextLimit])
	}
	return fmt.Sprintf("Based on this summary: \"%s...\"\nanswer this question: \"%s\"\n\nOnly use information from the summary. If the answer isn't in the summary, say so.", summary, question)
}
