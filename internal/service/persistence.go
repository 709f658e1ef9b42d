package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"leadbot/internal/model"
)

// ConversationWriter stores exchanges and their embeddings
type ConversationWriter interface {
	SaveConversation(ctx context.Context, record *model.ConversationRecord, embedding []float32) error
	MarkConversationSuccess(ctx context.Context, sessionID string, conversionScore float64) (int64, error)
}

// ErrInvalidConversionScore is returned for scores outside [0,1]
var ErrInvalidConversionScore = errors.New("conversion score out of range [0,1]")

// DefaultConversionScore is recorded when a booking completes without an explicit score
const DefaultConversionScore = 1.0

// PersistInput is one completed exchange
type PersistInput struct {
	Industry          string
	SessionID         string
	OrganizationID    string
	UserMessage       string
	AssistantResponse string
	Stage             model.Stage
	Guidance          *model.Guidance
	ResponseTime      time.Duration
}

// PersistenceSink writes completed exchanges for later similarity search
type PersistenceSink struct {
	store    ConversationWriter
	embedder Embedder
	now      func() time.Time
}

// NewPersistenceSink creates a new sink. A nil embedder stores rows without embeddings.
func NewPersistenceSink(store ConversationWriter, embedder Embedder) *PersistenceSink {
	return &PersistenceSink{store: store, embedder: embedder, now: time.Now}
}

// Persist stores the exchange. Embedding failures store a NULL embedding.
func (s *PersistenceSink) Persist(ctx context.Context, in PersistInput) (*model.ConversationRecord, error) {
	record := &model.ConversationRecord{
		ID:                uuid.New().String(),
		Industry:          in.Industry,
		SessionID:         in.SessionID,
		OrganizationID:    in.OrganizationID,
		UserMessage:       in.UserMessage,
		AssistantResponse: in.AssistantResponse,
		Stage:             in.Stage,
		Outcome:           model.OutcomeInProgress,
		BookingCompleted:  false,
		ProblemDetected:   in.Guidance.TopProblem(),
		SolutionPresented: in.Guidance.TopSolution(),
		ResponseTimeMs:    int(in.ResponseTime.Milliseconds()),
		CreatedAt:         s.now().UTC(),
	}

	var embedding []float32
	if s.embedder != nil {
		var err error
		embedding, err = s.embedder.Embed(ctx, in.UserMessage)
		if err != nil {
			log.Warn().Err(err).Str("session_id", in.SessionID).Msg("conversation embedding failed, storing without it")
			embedding = nil
		}
	}

	if err := s.store.SaveConversation(ctx, record, embedding); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	log.Debug().Str("id", record.ID).Str("session_id", record.SessionID).Bool("embedded", embedding != nil).
		Msg("conversation stored")
	return record, nil
}

// MarkSuccess flags every stored exchange of a session as a completed booking
func (s *PersistenceSink) MarkSuccess(ctx context.Context, sessionID string, conversionScore *float64) (int64, error) {
	score := DefaultConversionScore
	if conversionScore != nil {
		score = *conversionScore
	}
	if score < 0 || score > 1 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidConversionScore, score)
	}

	n, err := s.store.MarkConversationSuccess(ctx, sessionID, score)
	if err != nil {
		return 0, fmt.Errorf("mark conversation success: %w", err)
	}
	log.Info().Str("session_id", sessionID).Int64("rows", n).Float64("score", score).Msg("conversation marked successful")
	return n, nil
}
