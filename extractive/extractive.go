// Package extractive builds summaries by selecting sentences from the source
// text. It performs no I/O and is deterministic.
package extractive

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vereoman/better-summerize/models"
)

const (
	// FullTextThreshold is the length below which content is returned whole.
	FullTextThreshold = 1000
	defaultTitle      = "Content Summary"
	sectionSize       = 3
	maxKeyPoints      = 5
)

var (
	titlePattern    = regexp.MustCompile(`Title:\s*([^\n]+)`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)
	markerPattern   = regexp.MustCompile(`(?i)important|key point|remember|note that|significant|crucial|essential|fundamental|critical|main concept`)
)

// Summarize returns a structured extractive summary of content.
func Summarize(content string, contentType models.ContentType) string {
	title := Title(content)
	length := utf8.RuneCountInString(content)

	if length < FullTextThreshold {
		return fmt.Sprintf("# %s\n\n%s\n\n_Note: This content was short enough to present in full._", title, content)
	}

	sentences := Sentences(content)
	beginning, middle, ending := sections(sentences)

	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s - Basic Summary\n\n", title)
	sb.WriteString("## Overview\nThis is a basic extractive summary created without AI due to API limitations.\n\n")
	fmt.Fprintf(&sb, "## Beginning\n%s\n\n", strings.Join(beginning, " "))
	fmt.Fprintf(&sb, "## Middle Section\n%s\n\n", strings.Join(middle, " "))
	fmt.Fprintf(&sb, "## Ending\n%s\n\n", strings.Join(ending, " "))

	if contentType == models.ContentLecture {
		if points := KeyPoints(content); len(points) > 0 {
			fmt.Fprintf(&sb, "## Possible Key Points\n- %s\n\n", strings.Join(points, "\n- "))
		}
	}

	fmt.Fprintf(&sb, "## Full Content Length\nThe original content is %d characters long.\n\n", length)
	sb.WriteString("_Note: This is a basic extraction summary created when AI summarization was unavailable. For better results, try again later or with a different API key._")
	return sb.String()
}

// Title returns the value of the first "Title:" line, or a generic title.
func Title(content string) string {
	if m := titlePattern.FindStringSubmatch(content); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			return t
		}
	}
	return defaultTitle
}

// Sentences splits content on terminal punctuation. Trailing text with no
// terminator is kept as a final unit.
func Sentences(content string) []string {
	locs := sentencePattern.FindAllStringIndex(content, -1)
	out := make([]string, 0, len(locs)+1)
	end := 0
	for _, loc := range locs {
		if s := strings.TrimSpace(content[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		end = loc[1]
	}
	if rest := strings.TrimSpace(content[end:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func sections(sentences []string) (beginning, middle, ending []string) {
	n := len(sentences)
	beginning = sentences[:min(sectionSize, n)]

	start := max(0, n/2-1)
	middle = sentences[start:min(start+sectionSize, n)]

	ending = sentences[max(0, n-sectionSize):]
	return beginning, middle, ending
}

// KeyPoints returns up to five distinct marker phrases found in content,
// in order of first appearance. Phrases differing only in case are distinct.
func KeyPoints(content string) []string {
	seen := make(map[string]bool)
	var points []string
	for _, m := range markerPattern.FindAllString(content, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		points = append(points, m)
		if len(points) == maxKeyPoints {
			break
		}
	}
	return points
}
