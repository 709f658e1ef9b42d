package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"leadbot/internal/config"
	"leadbot/internal/domain"
	"leadbot/internal/model"
)

// ValidationError lists every invalid field of a chat request
type ValidationError struct {
	Issues []model.ValidationIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Path+": "+issue.Message)
	}
	return "invalid chat request: " + strings.Join(parts, "; ")
}

// ValidateChatRequest applies defaults to req and checks it. The resolved
// domain is returned when the request is valid.
func ValidateChatRequest(req *model.ChatRequest) (domain.Config, error) {
	var issues []model.ValidationIssue
	add := func(path, msg string) {
		issues = append(issues, model.ValidationIssue{Path: path, Message: msg})
	}

	if strings.TrimSpace(req.Industry) == "" {
		req.Industry = model.DefaultIndustry
	}
	if strings.TrimSpace(req.OrganizationID) == "" {
		req.OrganizationID = model.DefaultOrganizationID
	}

	if len(req.Messages) == 0 {
		add("messages", "at least one message is required")
	}
	for i, m := range req.Messages {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			add(fmt.Sprintf("messages.%d.role", i), `must be "user" or "assistant"`)
		}
		if strings.TrimSpace(m.Content) == "" {
			add(fmt.Sprintf("messages.%d.content", i), "must not be empty")
		}
	}
	if strings.TrimSpace(req.SessionID) == "" {
		add("sessionId", "is required")
	}

	cfg, ok := domain.Lookup(req.Industry)
	if !ok {
		add("industry", "must be one of: "+strings.Join(domain.Tags(), ", "))
	}

	if len(issues) > 0 {
		return domain.Config{}, &ValidationError{Issues: issues}
	}
	return cfg, nil
}

// ChatService prepares turns and hands them to the stream orchestrator
type ChatService struct {
	extractor    Extractor
	preferences  PreferenceStore
	contexts     ContextBuilder
	orchestrator *StreamOrchestrator
	timeouts     config.PipelineConfig
}

// NewChatService creates a new chat service. contexts may be nil, in which
// case every turn gets empty guidance.
func NewChatService(extractor Extractor, preferences PreferenceStore, contexts ContextBuilder, orchestrator *StreamOrchestrator, timeouts config.PipelineConfig) *ChatService {
	return &ChatService{
		extractor:    extractor,
		preferences:  preferences,
		contexts:     contexts,
		orchestrator: orchestrator,
		timeouts:     timeouts,
	}
}

// Prepare validates the request and runs every pre-stream step: extraction,
// preference merge, classification, guidance and prompt assembly. A
// *ValidationError means the request was rejected; any other error means the
// preference store failed.
func (s *ChatService) Prepare(ctx context.Context, req *model.ChatRequest) (*Turn, error) {
	started := time.Now()

	cfg, err := ValidateChatRequest(req)
	if err != nil {
		return nil, err
	}

	message := req.LatestUserMessage()
	extraction := s.extract(ctx, message, req.Messages)

	prefs, err := s.preferences.Update(ctx, req.SessionID, func(current model.PreferenceState) model.PreferenceState {
		return MergePreferences(current, extraction.Delta)
	})
	if err != nil {
		return nil, fmt.Errorf("update preferences: %w", err)
	}

	conv := BuildConversationContext(req.Messages, prefs, extraction.Fields)
	guidance := s.guidance(ctx, message, string(cfg.Tag), req.SessionID, conv)

	log.Debug().
		Str("session_id", req.SessionID).
		Str("domain", string(cfg.Tag)).
		Str("stage", string(conv.Stage)).
		Strs("extracted", extraction.Fields).
		Bool("can_search", conv.CanSearch).
		Msg("turn prepared")

	return &Turn{
		SessionID:      req.SessionID,
		OrganizationID: req.OrganizationID,
		Domain:         cfg,
		Messages:       req.Messages,
		UserMessage:    message,
		SystemPrompt:   AssemblePrompt(cfg.SystemPrompt, guidance, prefs, extraction.Fields, conv.CanSearch),
		Preferences:    prefs,
		Extraction:     extraction,
		Context:        conv,
		Guidance:       guidance,
		StartedAt:      started,
	}, nil
}

// Stream runs a prepared turn
func (s *ChatService) Stream(ctx context.Context, turn *Turn) <-chan model.StreamEvent {
	return s.orchestrator.Run(ctx, turn)
}

func (s *ChatService) extract(ctx context.Context, message string, history []model.ChatMessage) model.ExtractionResult {
	if s.timeouts.ExtractTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.ExtractTimeout)
		defer cancel()
	}
	return s.extractor.Extract(ctx, message, history)
}

func (s *ChatService) guidance(ctx context.Context, message, industry, sessionID string, conv model.ConversationContext) *model.Guidance {
	if s.contexts == nil {
		return EmptyGuidance()
	}
	if s.timeouts.ContextTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeouts.ContextTimeout)
		defer cancel()
	}

	g, err := s.contexts.Build(ctx, message, industry, conv)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Str("stage", "context").Msg("context builder failed, using empty guidance")
		return EmptyGuidance()
	}
	return g
}
