package service

import (
	"errors"
	"fmt"

	"fleettrack/internal/repository"
)

// Error kinds. Every error returned by this package for a caller mistake
// wraps exactly one of these, so handlers can branch with errors.Is.
var (
	// ErrNotFound is returned when a referenced entity does not exist or is
	// not visible to the caller's organization.
	ErrNotFound = repository.ErrNotFound

	// ErrInvalidState is returned when an operation is not allowed in the
	// entity's current state.
	ErrInvalidState = errors.New("invalid state")

	// ErrConflict is returned when an operation collides with existing data
	// or with a concurrent operation.
	ErrConflict = errors.New("conflict")

	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)

var (
	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = fmt.Errorf("%w: invalid trip id", ErrValidation)

	// ErrInvalidOrganizationID is returned when organization ID is empty.
	ErrInvalidOrganizationID = fmt.Errorf("%w: invalid organization id", ErrValidation)

	// ErrInvalidEmployeeID is returned when employee ID is empty.
	ErrInvalidEmployeeID = fmt.Errorf("%w: invalid employee id", ErrValidation)

	// ErrInvalidVehicleID is returned when vehicle ID is empty.
	ErrInvalidVehicleID = fmt.Errorf("%w: invalid vehicle id", ErrValidation)

	// ErrInvalidTaskID is returned when task ID is empty.
	ErrInvalidTaskID = fmt.Errorf("%w: invalid task id", ErrValidation)

	// ErrInvalidAnomalyID is returned when anomaly ID is empty.
	ErrInvalidAnomalyID = fmt.Errorf("%w: invalid anomaly id", ErrValidation)

	// ErrInvalidRouteID is returned when route ID is empty.
	ErrInvalidRouteID = fmt.Errorf("%w: invalid route id", ErrValidation)

	// ErrInvalidUserID is returned when the acting user is required but empty.
	ErrInvalidUserID = fmt.Errorf("%w: invalid user id", ErrValidation)

	// ErrInvalidStatus is returned for an unknown trip status filter.
	ErrInvalidStatus = fmt.Errorf("%w: invalid trip status", ErrValidation)

	// ErrInvalidTaskType is returned for an unknown task type.
	ErrInvalidTaskType = fmt.Errorf("%w: invalid task type", ErrValidation)

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = fmt.Errorf("%w: invalid location", ErrValidation)

	// ErrInvalidAccuracy is returned for a negative accuracy.
	ErrInvalidAccuracy = fmt.Errorf("%w: invalid accuracy", ErrValidation)

	// ErrInvalidRadius is returned for a non-positive search radius.
	ErrInvalidRadius = fmt.Errorf("%w: invalid radius", ErrValidation)

	// ErrInvalidOdometer is returned for a negative odometer reading.
	ErrInvalidOdometer = fmt.Errorf("%w: invalid odometer", ErrValidation)

	// ErrEndOdometerBelowStart is returned when a trip would end with less
	// mileage than it started with.
	ErrEndOdometerBelowStart = fmt.Errorf("%w: end odometer is below start odometer", ErrValidation)

	// ErrTripNotActive is returned when a trip is already completed or cancelled.
	ErrTripNotActive = fmt.Errorf("%w: trip is not active", ErrInvalidState)

	// ErrEmployeeHasActiveTrip is returned when employee already has an active trip.
	ErrEmployeeHasActiveTrip = fmt.Errorf("%w: employee already has an active trip", ErrConflict)

	// ErrTaskAlreadyLinked is returned when a task is linked twice to the same trip.
	ErrTaskAlreadyLinked = fmt.Errorf("%w: task already linked to trip", ErrConflict)

	// ErrReconciliationInProgress is returned when another reconciliation
	// holds the vehicle.
	ErrReconciliationInProgress = fmt.Errorf("%w: reconciliation already in progress for vehicle", ErrConflict)

	// ErrVehicleNotFound is returned when the vehicle is unknown to the organization.
	ErrVehicleNotFound = fmt.Errorf("%w: vehicle", ErrNotFound)

	// ErrTaskLinkNotFound is returned when the task is not linked to the trip.
	ErrTaskLinkNotFound = fmt.Errorf("%w: task link", ErrNotFound)

	// ErrAnomalyNotFound is returned when the anomaly is unknown to the organization.
	ErrAnomalyNotFound = fmt.Errorf("%w: anomaly", ErrNotFound)

	// ErrRouteNotFound is returned when the route is unknown to the organization.
	ErrRouteNotFound = fmt.Errorf("%w: route", ErrNotFound)
)
