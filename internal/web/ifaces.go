package web

import (
	"context"

	"github.com/AlekseyZapadovnikov/code-review/internal/models"
)

// ReviewService описывает операции интерактивного ревью, которые нужны HTTP-слою.
type ReviewService interface {
	Overview(ctx context.Context, scope, id, userID string) (*models.ReviewOverview, error)
	MarkReviewed(ctx context.Context, scope, id, userID string, req models.PostReviewJSONBody) error
	StartReview(ctx context.Context, scope, id, userID string) error
	CheckFastTrack(ctx context.Context, scope, id string) (*models.FastTrackCheck, error)
	FastTrack(ctx context.Context, scope, id, userID string) error
}

// Job джоба, запускаемая по HTTP.
type Job interface {
	Run(ctx context.Context) models.JobStatus
}

// Jobs джобы, доступные через /jobs. Незаданная джоба отвечает 404.
type Jobs struct {
	Assign Job
	Check  Job
}
