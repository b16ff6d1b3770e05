package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/pokelend/internal/model"
)

const trainerColumns = `id, name, email, credential, created_at`

// CreateTrainer registers a trainer. The email is stored lower-cased and
// must be unique; credential is stored as given.
func CreateTrainer(ctx context.Context, q Querier, name, email, credential string) (*model.Trainer, error) {
	id := uuid.NewString()
	_, err := q.ExecContext(ctx, q.Rebind(
		`INSERT INTO trainers (id, name, email, credential) VALUES (?, ?, ?, ?)`),
		id, strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email)), credential,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("creating trainer: %w", err)
	}

	return GetTrainer(ctx, q, id)
}

// GetTrainer returns a trainer by ID.
func GetTrainer(ctx context.Context, q Querier, id string) (*model.Trainer, error) {
	t := &model.Trainer{}
	err := sqlx.GetContext(ctx, q, t, q.Rebind(
		`SELECT `+trainerColumns+` FROM trainers WHERE id = ?`), id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting trainer: %w", err)
	}
	return t, nil
}

// FindTrainerByCredential returns the first trainer whose stored credential
// equals the given value.
func FindTrainerByCredential(ctx context.Context, q Querier, credential string) (*model.Trainer, error) {
	t := &model.Trainer{}
	err := sqlx.GetContext(ctx, q, t, q.Rebind(
		`SELECT `+trainerColumns+` FROM trainers WHERE credential = ? ORDER BY created_at, id LIMIT 1`), credential,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding trainer by credential: %w", err)
	}
	return t, nil
}

// ListTrainers returns all trainers ordered by name, credentials included.
// Callers exposing the result must not serialize Credential (it is tagged json:"-").
func ListTrainers(ctx context.Context, q Querier) ([]model.Trainer, error) {
	var trainers []model.Trainer
	err := sqlx.SelectContext(ctx, q, &trainers,
		`SELECT `+trainerColumns+` FROM trainers ORDER BY LOWER(name), id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing trainers: %w", err)
	}
	return trainers, nil
}

// DeleteTrainer removes a trainer. History entries keep the trainer id.
func DeleteTrainer(ctx context.Context, q Querier, id string) (bool, error) {
	result, err := q.ExecContext(ctx, q.Rebind(`DELETE FROM trainers WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("deleting trainer: %w", err)
	}
	return appliedOnce(result)
}
