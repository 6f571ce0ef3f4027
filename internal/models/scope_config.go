package models

// ScopeConfig параметры ревью, настраиваемые для отдельной области.
type ScopeConfig struct {
	LastReviewedRevisionField       string   `yaml:"lastReviewedRevisionField" json:"last_reviewed_revision_field,omitempty"`
	ReviewedRevisionsField          string   `yaml:"reviewedRevisionsField" json:"reviewed_revisions_field" validate:"required_without=LastReviewedRevisionField"`
	ReviewerField                   string   `yaml:"reviewerField" json:"reviewer_field" validate:"required"`
	InReviewStatus                  string   `yaml:"inReviewStatus" json:"in_review_status,omitempty"`
	SuccessfulReviewTransition      string   `yaml:"successfulReviewWorkflowAction" json:"successful_review_transition,omitempty"`
	UnsuccessfulReviewTransition    string   `yaml:"unsuccessfulReviewWorkflowAction" json:"unsuccessful_review_transition,omitempty"`
	SuccessfulReviewResolution      string   `yaml:"successfulReviewResolution" json:"successful_review_resolution,omitempty"`
	FastTrackPermittedPathPattern   string   `yaml:"fastTrackPermittedLocationPattern" json:"fast_track_permitted_path_pattern,omitempty"`
	FastTrackReviewer               string   `yaml:"fastTrackReviewer" json:"fast_track_reviewer,omitempty"`
	ReviewerRole                    string   `yaml:"reviewerRole" json:"reviewer_role,omitempty"`
	UnresolvedWithChangesNeedsPoint bool     `yaml:"unresolvedWorkItemWithRevisionsNeedsTimePoint" json:"unresolved_with_changes_needs_time_point"`
	PreventConcurrentReview         bool     `yaml:"preventConcurrentReview" json:"prevent_concurrent_review"`
	PastReviewers                   []string `yaml:"pastReviewers" json:"past_reviewers,omitempty"`
	IgnoredRepositories             []string `yaml:"ignoredRepositories" json:"ignored_repositories,omitempty"`
}

// IsPastReviewer сообщает, входит ли пользователь в список бывших ревьюеров.
func (c *ScopeConfig) IsPastReviewer(userID string) bool {
	for _, r := range c.PastReviewers {
		if r == userID {
			return true
		}
	}
	return false
}

// IsIgnoredRepository сообщает, исключён ли репозиторий из проверок fast-track.
func (c *ScopeConfig) IsIgnoredRepository(repository string) bool {
	for _, r := range c.IgnoredRepositories {
		if r == repository {
			return true
		}
	}
	return false
}
