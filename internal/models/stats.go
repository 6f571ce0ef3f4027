package models

// AssignmentStats содержит итоги одного прогона автоматического назначения.
type AssignmentStats struct {
	Assigned []SubjectAssignment `json:"assigned"`
	Skipped  []string            `json:"skipped"`
	Failed   []string            `json:"failed"`
	ByUser   []UserTallyStat     `json:"by_user"`
}

// SubjectAssignment показывает, какой ревьюер назначен на объект.
type SubjectAssignment struct {
	SubjectId string `json:"subject_id"`
	Reviewer  string `json:"reviewer"`
}

// UserTallyStat показывает нагрузку ревьюера за день принятия решения.
type UserTallyStat struct {
	UserId  string `json:"user_id"`
	Reviews int    `json:"reviews"`
}
