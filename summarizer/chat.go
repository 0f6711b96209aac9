package summarizer

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/vereoman/better-summerize/llm"
	"github.com/vereoman/better-summerize/models"
	"github.com/vereoman/better-summerize/ratelimit"
)

const (
	chatContextLimit   = 1000
	chatShortMessage   = 200
	chatLongMessage    = 500
	chatSummaryMinimum = 100
	chatTemperature    = 0.7
	chatMaxTokens      = 1024
)

const (
	replyLimitedShort = "I'm currently operating with limited capabilities due to API rate limits. I can help with basic questions, but for complex processing or summarization, please try again later."
	replyNoSummary    = "I don't have any previous summary to reference. Would you like me to summarize some content for you? You can share a YouTube link, upload a document, or paste text to summarize."
	replyLimited      = "I'm currently operating with limited capabilities due to API rate limits. I can see you've shared content that I've summarized before. If you have questions about that content, please keep them simple and specific, or try again later when full service is restored."
	replyCooledDown   = "I'm currently experiencing technical limitations due to API usage limits. I can help with basic questions, but for more complex processing, please try again later. If you have a specific question about the content I summarized earlier, please make it as clear and direct as possible."
	replyTrouble      = "I'm having trouble processing your question right now. Could you try asking in a different way or try again later?"
)

// Answer replies to a chat message, grounding follow-up questions on the most
// recent assistant summary in the history.
func (o *Orchestrator) Answer(ctx context.Context, req models.ChatRequest) string {
	const op = "Orchestrator.Answer"
	logger := o.logger.WithField("op", op)

	contentType := req.ContentType
	if contentType == "" {
		contentType = models.ContentText
	}
	length := utf8.RuneCountInString(req.Message)

	if !o.limiter.IsAvailable(o.now()) && length < chatShortMessage {
		return replyLimitedShort
	}

	lower := strings.ToLower(req.Message)
	if (strings.Contains(lower, "summarize") || strings.Contains(lower, "summary")) && length > chatShortMessage {
		return o.Summarize(ctx, models.SummarizationRequest{Content: req.Message, ContentType: contentType}).Text
	}

	latest := latestSummary(req.History)
	if latest == "" {
		if length > chatLongMessage {
			return o.Summarize(ctx, models.SummarizationRequest{Content: req.Message, ContentType: models.ContentText}).Text
		}
		return replyNoSummary
	}

	if !o.limiter.IsAvailable(o.now()) {
		return replyLimited
	}

	pool := o.limiter.Pool()
	key, idx := pool.Current()
	text, err := o.call(ctx, llm.Request{
		APIKey:      key,
		Model:       o.modelFor(o.limiter.SelectTier()),
		Prompt:      chatPrompt(latest, req.Message),
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
	})
	if err == nil {
		o.limiter.RecordSuccess()
		return text
	}

	logger.WithError(err).WithFields(logrus.Fields{"key": idx + 1}).Warn("Chat call failed")
	if llm.IsQuota(err) {
		if o.limiter.RecordQuotaError(idx, o.now(), err) == ratelimit.Rotated {
			return rotatedReply(contentType)
		}
		return replyCooledDown
	}
	return replyTrouble
}

func latestSummary(history []models.ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		m := history[i]
		if m.Role == "assistant" && utf8.RuneCountInString(m.Content) > chatSummaryMinimum {
			return m.Content
		}
	}
	return ""
}

func rotatedReply(contentType models.ContentType) string {
	subject := "some content"
	switch contentType {
	case models.ContentLecture:
		subject = "a lecture"
	case models.ContentBook:
		subject = "a book"
	}
	return "I encountered a temporary issue. Let me try to answer based on what I recall: " +
		"The summary you're asking about covered key points about " + subject +
		". Could you ask a more specific question about a particular aspect of it?"
}
