package models

// JobState итоговое состояние запуска джобы.
type JobState string

// Возможные состояния джобы.
const (
	JobStateOK        JobState = "ok"
	JobStateFailed    JobState = "failed"
	JobStateCancelled JobState = "cancelled"
)

// JobStatus результат запуска джобы с человекочитаемым сообщением.
type JobStatus struct {
	State   JobState         `json:"state"`
	Message string           `json:"message,omitempty"`
	Stats   *AssignmentStats `json:"stats,omitempty"`
}
