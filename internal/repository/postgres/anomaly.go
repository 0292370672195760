package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fleettrack/internal/domain"
	"fleettrack/internal/repository"
)

const anomalyColumns = `
	a.id, a.trip_id, a.type, a.severity, a.details, a.latitude, a.longitude, a.detected_at,
	a.resolved, a.resolved_by_id, a.resolution_notes, a.resolved_at`

// AnomalyRepository is a PostgreSQL implementation of repository.AnomalyRepository.
type AnomalyRepository struct {
	q Querier
}

// NewAnomalyRepository creates a new PostgreSQL anomaly repository.
func NewAnomalyRepository(db *sql.DB) *AnomalyRepository {
	return &AnomalyRepository{q: db}
}

// NewAnomalyRepositoryWithTx creates an anomaly repository using a transaction.
func NewAnomalyRepositoryWithTx(tx *sql.Tx) *AnomalyRepository {
	return &AnomalyRepository{q: tx}
}

// Create persists a new anomaly.
func (r *AnomalyRepository) Create(ctx context.Context, anomaly *domain.TripAnomaly) error {
	details, err := json.Marshal(anomaly.Details)
	if err != nil {
		return fmt.Errorf("encode anomaly details: %w", err)
	}

	query := `
		INSERT INTO trip_anomalies (id, trip_id, type, severity, details, latitude, longitude,
			detected_at, resolved, resolved_by_id, resolution_notes, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.q.ExecContext(ctx, query,
		anomaly.ID,
		anomaly.TripID,
		anomaly.Type,
		anomaly.Severity,
		string(details),
		anomaly.Latitude,
		anomaly.Longitude,
		anomaly.DetectedAt,
		anomaly.Resolved,
		nullString(anomaly.ResolvedByID),
		anomaly.ResolutionNotes,
		nullTime(anomaly.ResolvedAt),
	)
	return err
}

// GetByID retrieves an anomaly by ID.
func (r *AnomalyRepository) GetByID(ctx context.Context, id string) (*domain.TripAnomaly, error) {
	query := `SELECT ` + anomalyColumns + ` FROM trip_anomalies a WHERE a.id = $1`

	anomaly, err := scanAnomaly(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return anomaly, err
}

// Update updates the resolution fields of an anomaly.
func (r *AnomalyRepository) Update(ctx context.Context, anomaly *domain.TripAnomaly) error {
	query := `
		UPDATE trip_anomalies
		SET resolved = $1, resolved_by_id = $2, resolution_notes = $3, resolved_at = $4
		WHERE id = $5
	`

	result, err := r.q.ExecContext(ctx, query,
		anomaly.Resolved,
		nullString(anomaly.ResolvedByID),
		anomaly.ResolutionNotes,
		nullTime(anomaly.ResolvedAt),
		anomaly.ID,
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

// ListByTrip retrieves all anomalies of a trip, oldest first.
func (r *AnomalyRepository) ListByTrip(ctx context.Context, tripID string) ([]*domain.TripAnomaly, error) {
	query := `SELECT ` + anomalyColumns + ` FROM trip_anomalies a
		WHERE a.trip_id = $1
		ORDER BY a.detected_at ASC`

	return r.list(ctx, query, tripID)
}

// List retrieves anomalies matching the filter, newest first.
func (r *AnomalyRepository) List(ctx context.Context, filter repository.AnomalyFilter) ([]*domain.TripAnomaly, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.OrganizationID != "" {
		add("t.organization_id = $%d", filter.OrganizationID)
	}
	if filter.TripID != "" {
		add("a.trip_id = $%d", filter.TripID)
	}
	if filter.Resolved != nil {
		add("a.resolved = $%d", *filter.Resolved)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}

	query := `SELECT ` + anomalyColumns + ` FROM trip_anomalies a JOIN trips t ON t.id = a.trip_id`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(` ORDER BY a.detected_at DESC LIMIT $%d`, len(args))

	return r.list(ctx, query, args...)
}

func (r *AnomalyRepository) list(ctx context.Context, query string, args ...any) ([]*domain.TripAnomaly, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var anomalies []*domain.TripAnomaly
	for rows.Next() {
		anomaly, err := scanAnomaly(rows)
		if err != nil {
			return nil, err
		}
		anomalies = append(anomalies, anomaly)
	}

	return anomalies, rows.Err()
}

func scanAnomaly(s scanner) (*domain.TripAnomaly, error) {
	var (
		anomaly      domain.TripAnomaly
		details      []byte
		resolvedByID sql.NullString
		resolvedAt   sql.NullTime
	)

	err := s.Scan(
		&anomaly.ID,
		&anomaly.TripID,
		&anomaly.Type,
		&anomaly.Severity,
		&details,
		&anomaly.Latitude,
		&anomaly.Longitude,
		&anomaly.DetectedAt,
		&anomaly.Resolved,
		&resolvedByID,
		&anomaly.ResolutionNotes,
		&resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	anomaly.Details, err = domain.DecodeAnomalyDetails(anomaly.Type, details)
	if err != nil {
		return nil, err
	}
	anomaly.ResolvedByID = resolvedByID.String
	anomaly.ResolvedAt = timeOrZero(resolvedAt)

	return &anomaly, nil
}

var _ repository.AnomalyRepository = (*AnomalyRepository)(nil)
