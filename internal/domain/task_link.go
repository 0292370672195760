package domain

import "time"

// TaskLinkStatus represents the progress of a task linked to a trip.
type TaskLinkStatus string

const (
	TaskLinkStatusPending    TaskLinkStatus = "pending"
	TaskLinkStatusInProgress TaskLinkStatus = "in_progress"
	TaskLinkStatusCompleted  TaskLinkStatus = "completed"
)

// TripTaskLink associates a trip with an external work task.
type TripTaskLink struct {
	ID          string
	TripID      string
	TaskID      string
	Status      TaskLinkStatus
	CompletedAt time.Time
	Notes       string
	LinkedByID  string
	CreatedAt   time.Time
}
