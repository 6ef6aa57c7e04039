package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"casa-backend/internal/analyses"
	"casa-backend/internal/llm"
	"casa-backend/internal/shared/metrics"
	"casa-backend/internal/shared/telemetry"
)

const (
	maxTokens       = 800
	temperature     = 0.7
	defaultLanguage = "Arabic"
)

var (
	ErrEmptyMessage  = errors.New("message is required")
	ErrReportMissing = errors.New("Failed to fetch analysis data")
	ErrNoReply       = errors.New("Failed to get AI response")
)

// ReportSource loads reports scoped to their owner.
type ReportSource interface {
	GetOwned(ctx context.Context, userID, id string) (analyses.Report, error)
}

// LanguagePreferences returns a user's preferred reply language, or "".
type LanguagePreferences interface {
	ChatLanguage(ctx context.Context, userID string) string
}

// Service answers questions about a stored report through an LLM.
type Service struct {
	Reports ReportSource
	LLM     llm.Client
	// Language is used when the user has no stored preference.
	Language    string
	Preferences LanguagePreferences
}

// Question is one chat turn from the user.
type Question struct {
	Message    string `json:"message"`
	AnalysisID string `json:"analysisId"`
	UserID     string `json:"userId"`
}

// Reply answers q using the report it refers to as context.
func (s *Service) Reply(ctx context.Context, q Question) (string, error) {
	message := strings.TrimSpace(q.Message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	report, err := s.Reports.GetOwned(ctx, q.UserID, q.AnalysisID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrReportMissing, err)
	}

	client := s.LLM
	if client == nil {
		client = llm.PlaceholderClient{}
	}
	answer, err := client.Chat(ctx, llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: SystemPrompt(report, s.language(ctx, q.UserID))},
			{Role: llm.RoleUser, Content: message},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		telemetry.Warn("chat.reply_failed", map[string]any{
			"report_id": report.ID,
			"error":     err.Error(),
		})
		return "", fmt.Errorf("%w: %v", ErrNoReply, err)
	}

	metrics.IncChatReply()
	telemetry.Info("chat.reply", map[string]any{"report_id": report.ID, "chars": len(answer)})
	return answer, nil
}

func (s *Service) language(ctx context.Context, userID string) string {
	if s.Preferences != nil {
		if lang := s.Preferences.ChatLanguage(ctx, userID); lang != "" {
			return lang
		}
	}
	return s.Language
}

// SystemPrompt renders the specialist persona with the report's key values.
func SystemPrompt(r analyses.Report, language string) string {
	if strings.TrimSpace(language) == "" {
		language = defaultLanguage
	}
	motility, _ := json.Marshal(r.Motility)
	morphology, _ := json.Marshal(r.Morphology)

	var b strings.Builder
	fmt.Fprintf(&b, "You are a physician specialising in andrology, reproduction and fertility. ")
	fmt.Fprintf(&b, "Interpret the semen analysis below and give accurate, professional medical advice in %s.\n\n", language)
	b.WriteString("Patient semen analysis:\n")
	fmt.Fprintf(&b, "- Sperm count: %d million/ml\n", r.SpermCount)
	fmt.Fprintf(&b, "- Concentration: %d million/ml\n", r.Concentration)
	fmt.Fprintf(&b, "- Average speed: %g um/s\n", r.SpeedAvg)
	fmt.Fprintf(&b, "- Vitality: %d%%\n", r.Vitality)
	fmt.Fprintf(&b, "- Volume: %g ml\n", r.Volume)
	fmt.Fprintf(&b, "- pH: %g\n", r.PH)
	fmt.Fprintf(&b, "- Motility: %s\n", motility)
	fmt.Fprintf(&b, "- Morphology: %s\n", morphology)
	return b.String()
}
