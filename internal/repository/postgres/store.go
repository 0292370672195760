package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"fleettrack/internal/repository"
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repos returns repositories that run outside any transaction.
func (s *Store) Repos() repository.Repositories {
	return repositoriesFor(s.db)
}

// WithinTx runs fn with repositories bound to a single transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(ctx, repositoriesFor(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func repositoriesFor(q Querier) repository.Repositories {
	return repository.Repositories{
		Trips:           &TripRepository{q: q},
		Points:          &TripPointRepository{q: q},
		Stops:           &TripStopRepository{q: q},
		Anomalies:       &AnomalyRepository{q: q},
		TaskLinks:       &TaskLinkRepository{q: q},
		Vehicles:        &VehicleRepository{q: q},
		Reconciliations: &ReconciliationRepository{q: q},
		Routes:          &RouteRepository{q: q},
	}
}

var _ repository.Store = (*Store)(nil)
