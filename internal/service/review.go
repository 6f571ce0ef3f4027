package service

import (
	"context"
	"fmt"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
	"github.com/AlekseyZapadovnikov/code-review/internal/models"
	"github.com/AlekseyZapadovnikov/code-review/internal/review"
)

// Overview возвращает состояние ревью объекта для текущего пользователя.
func (m *ReviewManager) Overview(ctx context.Context, scopeName, id, userID string) (*models.ReviewOverview, error) {
	st, err := m.load(ctx, scopeName, id)
	if err != nil {
		return nil, err
	}
	canReview, err := m.canReview(ctx, st, userID)
	if err != nil {
		return nil, err
	}
	mustStart, err := m.mustStartReview(ctx, st, userID)
	if err != nil {
		return nil, err
	}

	entries := st.set.Entries()
	views := make([]models.ReviewEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, models.ReviewEntryView{
			Key:                e.Key(),
			Repository:         e.Change.Repository,
			Revision:           e.Change.Revision,
			Author:             e.Change.Author,
			Created:            e.Change.Created,
			Message:            e.Change.Message,
			Reviewed:           e.Reviewed,
			Reviewer:           e.Reviewer,
			SuitableForCompare: e.SuitableForCompare,
		})
	}
	toCompare := st.set.ComparableUnreviewed()
	keys := make([]string, 0, len(toCompare))
	for _, c := range toCompare {
		keys = append(keys, c.Key())
	}

	transitions, err := m.store.AvailableTransitions(ctx, st.subject)
	if err != nil {
		return nil, fmt.Errorf("failed to list transitions of %s: %w", st.subject.Ref(), err)
	}

	msg := fastTrackMessage(st)
	return &models.ReviewOverview{
		Subject:            st.subject,
		Entries:            views,
		Reviewer:           currentReviewer(st),
		HasUnreviewed:      st.set.HasUnreviewed(),
		ComparableKeys:     keys,
		CanReview:          canReview,
		MustStartReview:    mustStart,
		FastTrackPermitted: msg == "",
		FastTrackMessage:   msg,
		Transitions:        transitions,
	}, nil
}

// MarkReviewed отмечает ревизии просмотренными и при необходимости выполняет переход рабочего процесса.
func (m *ReviewManager) MarkReviewed(ctx context.Context, scopeName, id, userID string, req models.PostReviewJSONBody) error {
	if !review.ValidReviewer(userID) {
		return domain.NewUnauthorizedError("review as " + userID)
	}
	switch req.WorkflowAction {
	case models.WorkflowActionNone, models.WorkflowActionSuccessfulReview, models.WorkflowActionUnsuccessfulReview:
	default:
		return domain.NewInvalidRequestError(fmt.Sprintf("unknown workflow action %q", req.WorkflowAction))
	}

	return m.inTx(ctx, false, func(tm *ReviewManager) error {
		st, err := tm.load(ctx, scopeName, id)
		if err != nil {
			return err
		}
		ok, err := tm.canReview(ctx, st, userID)
		if err != nil {
			return err
		}
		if !ok {
			if !inReview(st) {
				return domain.NewNotInReviewError(st.subject.Ref())
			}
			return domain.NewUnauthorizedError("review " + st.subject.Ref())
		}

		reviewer, err := tm.identity(ctx, userID)
		if err != nil {
			return err
		}
		if req.All {
			st.set.MarkReviewed(review.MatchAll, reviewer)
		} else {
			st.set.MarkKeysReviewed(req.Revisions, reviewer)
		}
		storeSet(st)
		st.subject.SetField(st.settings.ReviewerField, userID)

		if err := tm.applyWorkflowAction(ctx, st, req.WorkflowAction); err != nil {
			return err
		}
		if err := tm.store.SaveSubject(ctx, st.subject, userID); err != nil {
			return fmt.Errorf("failed to save subject %s: %w", st.subject.Ref(), err)
		}
		if req.Comment != "" {
			if err := tm.store.AddComment(ctx, st.subject, userID, req.Comment); err != nil {
				return fmt.Errorf("failed to add comment to %s: %w", st.subject.Ref(), err)
			}
		}
		tm.logger.Info("revisions reviewed",
			"subject", st.subject.Ref(),
			"reviewer", userID,
			"workflow_action", string(req.WorkflowAction),
			"has_unreviewed", st.set.HasUnreviewed(),
		)
		return nil
	})
}

func (m *ReviewManager) applyWorkflowAction(ctx context.Context, st *reviewState, action models.WorkflowAction) error {
	switch action {
	case models.WorkflowActionSuccessfulReview:
		if st.settings.SuccessfulReviewTransition == "" {
			return domain.NewConfigError("successfulReviewWorkflowAction is not configured for scope %s", st.subject.Scope)
		}
		if st.set.HasUnreviewed() {
			m.logger.Info("unreviewed revisions remain, successful transition skipped", "subject", st.subject.Ref())
			return nil
		}
		return m.store.PerformTransition(ctx, st.subject, st.settings.SuccessfulReviewTransition, st.settings.SuccessfulReviewResolution)
	case models.WorkflowActionUnsuccessfulReview:
		if st.settings.UnsuccessfulReviewTransition == "" {
			return domain.NewConfigError("unsuccessfulReviewWorkflowAction is not configured for scope %s", st.subject.Scope)
		}
		return m.store.PerformTransition(ctx, st.subject, st.settings.UnsuccessfulReviewTransition, "")
	}
	return nil
}

// StartReview закрепляет объект за пользователем, если ревью нужно начать явно.
func (m *ReviewManager) StartReview(ctx context.Context, scopeName, id, userID string) error {
	return m.inTx(ctx, false, func(tm *ReviewManager) error {
		st, err := tm.load(ctx, scopeName, id)
		if err != nil {
			return err
		}
		if currentReviewer(st) == userID {
			return nil
		}
		must, err := tm.mustStartReview(ctx, st, userID)
		if err != nil {
			return err
		}
		if !must {
			if !inReview(st) {
				return domain.NewNotInReviewError(st.subject.Ref())
			}
			return domain.NewUnauthorizedError("start review of " + st.subject.Ref())
		}

		st.subject.SetField(st.settings.ReviewerField, userID)
		if err := tm.store.SaveSubject(ctx, st.subject, userID); err != nil {
			return fmt.Errorf("failed to save subject %s: %w", st.subject.Ref(), err)
		}
		tm.logger.Info("review started", "subject", st.subject.Ref(), "reviewer", userID)
		return nil
	})
}

// CheckFastTrack проверяет условие fast-track для объекта.
func (m *ReviewManager) CheckFastTrack(ctx context.Context, scopeName, id string) (*models.FastTrackCheck, error) {
	st, err := m.load(ctx, scopeName, id)
	if err != nil {
		return nil, err
	}
	msg := fastTrackMessage(st)
	return &models.FastTrackCheck{Permitted: msg == "", Message: msg}, nil
}

// FastTrack отмечает все ревизии просмотренными от имени ревьюера fast-track.
func (m *ReviewManager) FastTrack(ctx context.Context, scopeName, id, userID string) error {
	return m.inTx(ctx, false, func(tm *ReviewManager) error {
		st, err := tm.load(ctx, scopeName, id)
		if err != nil {
			return err
		}
		ok, err := tm.canReview(ctx, st, userID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewUnauthorizedError("fast track " + st.subject.Ref())
		}
		if msg := fastTrackMessage(st); msg != "" {
			return domain.NewFastTrackDeniedError(msg)
		}

		reviewer, err := tm.identity(ctx, st.settings.FastTrackReviewer)
		if err != nil {
			return err
		}
		st.set.MarkReviewed(review.MatchAll, reviewer)
		storeSet(st)
		st.subject.SetField(st.settings.ReviewerField, st.settings.FastTrackReviewer)
		if err := tm.store.SaveSubject(ctx, st.subject, userID); err != nil {
			return fmt.Errorf("failed to save subject %s: %w", st.subject.Ref(), err)
		}
		tm.logger.Info("fast track review", "subject", st.subject.Ref(), "requested_by", userID)
		return nil
	})
}
