package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"leadbot/internal/model"
)

const leadColumns = `
	id, organization_id, name, email, phone, source, status, score, score_value,
	budget, timeline, notes, tags, custom_fields, assigned_to_id, last_contact_at,
	created_at, updated_at`

// FindLeadBySession returns the lead created for a chatbot session, or nil
func (r *PostgresRepository) FindLeadBySession(ctx context.Context, organizationID, sessionID string) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + `
		FROM leads
		WHERE organization_id = $1 AND custom_fields->>'chatbot_session_id' = $2
		ORDER BY created_at DESC
		LIMIT 1`
	return r.getLead(ctx, query, organizationID, sessionID)
}

// GetLeadByID returns a lead, or nil when it does not exist
func (r *PostgresRepository) GetLeadByID(ctx context.Context, leadID string) (*model.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	return r.getLead(ctx, query, leadID)
}

func (r *PostgresRepository) getLead(ctx context.Context, query string, args ...interface{}) (*model.Lead, error) {
	var lead model.Lead
	err := r.db.GetContext(ctx, &lead, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get lead: %w", err)
	}
	return &lead, nil
}

// CreateLead inserts a lead
func (r *PostgresRepository) CreateLead(ctx context.Context, lead *model.Lead) error {
	query := `
		INSERT INTO leads (
			id, organization_id, name, email, phone, source, status, score, score_value,
			budget, timeline, notes, tags, custom_fields, assigned_to_id, last_contact_at,
			created_at, updated_at
		) VALUES (
			:id, :organization_id, :name, :email, :phone, :source, :status, :score, :score_value,
			:budget, :timeline, :notes, :tags, :custom_fields, :assigned_to_id, :last_contact_at,
			:created_at, :updated_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// UpdateLead writes every mutable lead column
func (r *PostgresRepository) UpdateLead(ctx context.Context, lead *model.Lead) error {
	query := `
		UPDATE leads SET
			name = :name, email = :email, phone = :phone, status = :status,
			score = :score, score_value = :score_value, budget = :budget,
			timeline = :timeline, notes = :notes, custom_fields = :custom_fields,
			last_contact_at = :last_contact_at, updated_at = :updated_at
		WHERE id = :id
	`
	if _, err := r.db.NamedExecContext(ctx, query, lead); err != nil {
		return fmt.Errorf("failed to update lead: %w", err)
	}
	return nil
}

// UpdateLeadCustomFields replaces the custom fields of a lead
func (r *PostgresRepository) UpdateLeadCustomFields(ctx context.Context, leadID string, fields model.JSONMap) error {
	query := `UPDATE leads SET custom_fields = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, leadID, fields); err != nil {
		return fmt.Errorf("failed to update lead custom fields: %w", err)
	}
	return nil
}

// UpdateLeadStatus sets status and score tier and stamps the contact time
func (r *PostgresRepository) UpdateLeadStatus(ctx context.Context, leadID, status, score string) error {
	query := `
		UPDATE leads
		SET status = $2, score = $3, last_contact_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, leadID, status, score); err != nil {
		return fmt.Errorf("failed to update lead status: %w", err)
	}
	return nil
}

// CreateActivity inserts an activity
func (r *PostgresRepository) CreateActivity(ctx context.Context, activity *model.Activity) error {
	query := `
		INSERT INTO activities (
			id, organization_id, lead_id, type, title, description, metadata,
			assigned_to_id, completed_at
		) VALUES (
			:id, :organization_id, :lead_id, :type, :title, :description, :metadata,
			:assigned_to_id, :completed_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, activity); err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// CreateAppointment inserts an appointment
func (r *PostgresRepository) CreateAppointment(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, organization_id, assigned_to, title, description, start_time,
			end_time, status, location
		) VALUES (
			:id, :organization_id, :assigned_to, :title, :description, :start_time,
			:end_time, :status, :location
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, appointment); err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

// FindDefaultAgent returns the oldest admin or employee of an organization,
// or "" when there is none
func (r *PostgresRepository) FindDefaultAgent(ctx context.Context, organizationID string) (string, error) {
	query := `
		SELECT id FROM users
		WHERE organization_id = $1 AND role IN ('ADMIN', 'EMPLOYEE')
		ORDER BY created_at ASC
		LIMIT 1
	`
	var id string
	err := r.db.GetContext(ctx, &id, query, organizationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to find default agent: %w", err)
	}
	return id, nil
}
