package models

import "time"

// WorkflowAction действие рабочего процесса, запрошенное вместе с отметкой ревью.
type WorkflowAction string

// Поддерживаемые действия рабочего процесса.
const (
	WorkflowActionNone               WorkflowAction = ""
	WorkflowActionSuccessfulReview   WorkflowAction = "successfulReview"
	WorkflowActionUnsuccessfulReview WorkflowAction = "unsuccessfulReview"
)

// ReviewEntryView представление записи журнала ревью для UI.
type ReviewEntryView struct {
	Key                string    `json:"key"`
	Repository         string    `json:"repository"`
	Revision           string    `json:"revision"`
	Author             string    `json:"author"`
	Created            time.Time `json:"created"`
	Message            string    `json:"message"`
	Reviewed           bool      `json:"reviewed"`
	Reviewer           string    `json:"reviewer,omitempty"`
	SuitableForCompare bool      `json:"suitable_for_compare"`
}

// ReviewOverview состояние ревью объекта с точки зрения текущего пользователя.
type ReviewOverview struct {
	Subject            *ReviewSubject    `json:"subject"`
	Entries            []ReviewEntryView `json:"entries"`
	Reviewer           string            `json:"reviewer,omitempty"`
	HasUnreviewed      bool              `json:"has_unreviewed"`
	ComparableKeys     []string          `json:"comparable_unreviewed"`
	CanReview          bool              `json:"can_review"`
	MustStartReview    bool              `json:"must_start_review"`
	FastTrackPermitted bool              `json:"fast_track_permitted"`
	FastTrackMessage   string            `json:"fast_track_message,omitempty"`
	Transitions        []Transition      `json:"transitions,omitempty"`
}

// PostReviewJSONBody тело запроса на отметку ревизий просмотренными.
type PostReviewJSONBody struct {
	Revisions      []string       `json:"revisions"`
	All            bool           `json:"all"`
	WorkflowAction WorkflowAction `json:"workflowAction"`
	Comment        string         `json:"comment"`
}

// FastTrackCheck результат проверки условия fast-track.
type FastTrackCheck struct {
	Permitted bool   `json:"permitted"`
	Message   string `json:"message,omitempty"`
}
