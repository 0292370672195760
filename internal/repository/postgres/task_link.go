package postgres

import (
	"context"
	"database/sql"
	"errors"

	"fleettrack/internal/domain"
	"fleettrack/internal/repository"
)

const taskLinkColumns = `id, trip_id, task_id, status, completed_at, notes, linked_by_id, created_at`

// TaskLinkRepository is a PostgreSQL implementation of repository.TaskLinkRepository.
type TaskLinkRepository struct {
	q Querier
}

// NewTaskLinkRepository creates a new PostgreSQL task link repository.
func NewTaskLinkRepository(db *sql.DB) *TaskLinkRepository {
	return &TaskLinkRepository{q: db}
}

// NewTaskLinkRepositoryWithTx creates a task link repository using a transaction.
func NewTaskLinkRepositoryWithTx(tx *sql.Tx) *TaskLinkRepository {
	return &TaskLinkRepository{q: tx}
}

// Create persists a link.
func (r *TaskLinkRepository) Create(ctx context.Context, link *domain.TripTaskLink) error {
	query := `INSERT INTO trip_task_links (` + taskLinkColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.q.ExecContext(ctx, query,
		link.ID,
		link.TripID,
		link.TaskID,
		link.Status,
		nullTime(link.CompletedAt),
		link.Notes,
		nullString(link.LinkedByID),
		link.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

// Get retrieves the link between a trip and a task.
func (r *TaskLinkRepository) Get(ctx context.Context, tripID, taskID string) (*domain.TripTaskLink, error) {
	query := `SELECT ` + taskLinkColumns + ` FROM trip_task_links WHERE trip_id = $1 AND task_id = $2`

	link, err := scanTaskLink(r.q.QueryRowContext(ctx, query, tripID, taskID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return link, err
}

// Update updates an existing link.
func (r *TaskLinkRepository) Update(ctx context.Context, link *domain.TripTaskLink) error {
	query := `UPDATE trip_task_links SET status = $1, completed_at = $2, notes = $3 WHERE id = $4`

	result, err := r.q.ExecContext(ctx, query,
		link.Status,
		nullTime(link.CompletedAt),
		link.Notes,
		link.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// ListByTrip retrieves all links of a trip.
func (r *TaskLinkRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.TripTaskLink, error) {
	query := `SELECT ` + taskLinkColumns + ` FROM trip_task_links WHERE trip_id = $1 ORDER BY created_at ASC`

	rows, err := r.q.QueryContext(ctx, query, tripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*domain.TripTaskLink
	for rows.Next() {
		link, err := scanTaskLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}

	return links, rows.Err()
}

func scanTaskLink(s scanner) (*domain.TripTaskLink, error) {
	var (
		link        domain.TripTaskLink
		completedAt sql.NullTime
		linkedByID  sql.NullString
	)

	err := s.Scan(
		&link.ID,
		&link.TripID,
		&link.TaskID,
		&link.Status,
		&completedAt,
		&link.Notes,
		&linkedByID,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	link.CompletedAt = timeOrZero(completedAt)
	link.LinkedByID = linkedByID.String
	return &link, nil
}

var _ repository.TaskLinkRepository = (*TaskLinkRepository)(nil)
