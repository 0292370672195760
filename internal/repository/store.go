package repository

import "context"

// Repositories groups the repositories sharing one connection or transaction.
type Repositories struct {
	Trips           TripRepository
	Points          TripPointRepository
	Stops           TripStopRepository
	Anomalies       AnomalyRepository
	TaskLinks       TaskLinkRepository
	Vehicles        VehicleRepository
	Reconciliations ReconciliationRepository
	Routes          RouteRepository
}

// Store gives access to repositories, optionally inside a transaction.
type Store interface {
	// Repos returns repositories that run outside any transaction.
	Repos() Repositories

	// WithinTx runs fn with transaction-scoped repositories. The transaction
	// commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
