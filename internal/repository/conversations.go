package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"leadbot/internal/model"
)

// OutcomeConverted marks an exchange whose session ended in a booking
const OutcomeConverted = "converted"

// SaveConversation inserts one exchange. A nil embedding is stored as NULL.
func (r *PostgresRepository) SaveConversation(ctx context.Context, record *model.ConversationRecord, embedding []float32) error {
	var vec interface{}
	if len(embedding) > 0 {
		vec = pgvector.NewVector(embedding)
	}

	query := `
		INSERT INTO conversations (
			id, industry, session_id, organization_id, user_message, assistant_response,
			conversation_stage, outcome, booking_completed, problem_detected,
			solution_presented, response_time_ms, embedding, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.Industry, record.SessionID, record.OrganizationID,
		record.UserMessage, record.AssistantResponse, string(record.Stage), record.Outcome,
		record.BookingCompleted, record.ProblemDetected, record.SolutionPresented,
		record.ResponseTimeMs, vec, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

// FindSimilarConversations returns stored exchanges of the industry whose
// cosine similarity to embedding is at least threshold, most similar first
func (r *PostgresRepository) FindSimilarConversations(ctx context.Context, embedding []float32, industry string, threshold float64, limit int) ([]model.SimilarConversation, error) {
	query := `
		SELECT
			id, user_message, assistant_response, problem_detected, solution_presented,
			outcome, conversion_score, 1 - (embedding <=> $1) AS similarity
		FROM conversations
		WHERE industry = $2
			AND embedding IS NOT NULL
			AND 1 - (embedding <=> $1) >= $3
		ORDER BY embedding <=> $1
		LIMIT $4
	`
	var similar []model.SimilarConversation
	err := r.db.SelectContext(ctx, &similar, query, pgvector.NewVector(embedding), industry, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search conversations: %w", err)
	}
	return similar, nil
}

// MarkConversationSuccess flags every exchange of a session as converted
func (r *PostgresRepository) MarkConversationSuccess(ctx context.Context, sessionID string, conversionScore float64) (int64, error) {
	query := `
		UPDATE conversations
		SET booking_completed = true, outcome = $2, conversion_score = $3
		WHERE session_id = $1
	`
	res, err := r.db.ExecContext(ctx, query, sessionID, OutcomeConverted, conversionScore)
	if err != nil {
		return 0, fmt.Errorf("failed to mark conversation success: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
