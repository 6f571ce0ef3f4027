package checker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
	"github.com/AlekseyZapadovnikov/code-review/internal/models"
	"github.com/AlekseyZapadovnikov/code-review/internal/notify"
)

type mockHost struct {
	runQueryFn         func(context.Context, string, string) ([]*models.ReviewSubject, error)
	changesFn          func(context.Context, string, string) ([]models.ChangeRecord, error)
	subjectsLinkedToFn func(context.Context, string, models.ChangeRecord) ([]*models.ReviewSubject, error)
	needsReviewFn      func(context.Context, *models.ReviewSubject) ([]string, error)
	needsReviewCalls   int
}

func (m *mockHost) RunQuery(ctx context.Context, scope, query string) ([]*models.ReviewSubject, error) {
	if m.runQueryFn == nil {
		return nil, nil
	}
	return m.runQueryFn(ctx, scope, query)
}

func (m *mockHost) ChangesInRepository(ctx context.Context, repository, from string) ([]models.ChangeRecord, error) {
	if m.changesFn == nil {
		return nil, nil
	}
	return m.changesFn(ctx, repository, from)
}

func (m *mockHost) SubjectsLinkedTo(ctx context.Context, scope string, change models.ChangeRecord) ([]*models.ReviewSubject, error) {
	if m.subjectsLinkedToFn == nil {
		return nil, nil
	}
	return m.subjectsLinkedToFn(ctx, scope, change)
}

func (m *mockHost) NeedsReviewAgain(ctx context.Context, subject *models.ReviewSubject) ([]string, error) {
	m.needsReviewCalls++
	if m.needsReviewFn == nil {
		return nil, nil
	}
	return m.needsReviewFn(ctx, subject)
}

type mockGit struct {
	changes []models.ChangeRecord
	err     error
}

func (m *mockGit) Changes(context.Context, string, string) ([]models.ChangeRecord, error) {
	return m.changes, m.err
}

type mockNotifier struct {
	sent []notify.Notification
	err  error
}

func (m *mockNotifier) Notify(_ context.Context, n notify.Notification) error {
	m.sent = append(m.sent, n)
	return m.err
}

var (
	wi1 = &models.ReviewSubject{Scope: "proj", ID: "WI-1"}
	wi2 = &models.ReviewSubject{Scope: "proj", ID: "WI-2"}
)

func defaultChanges(revs ...string) []models.ChangeRecord {
	out := make([]models.ChangeRecord, 0, len(revs))
	for _, r := range revs {
		out = append(out, models.ChangeRecord{Repository: models.DefaultRepository, Revision: r, Author: "bob", Message: "fix " + r + "\ndetails"})
	}
	return out
}

// linkedHost: ревизия 10 связана с WI-1, 11 с WI-1 и WI-2, 12 ни с чем.
func linkedHost() *mockHost {
	return &mockHost{
		changesFn: func(_ context.Context, repository, from string) ([]models.ChangeRecord, error) {
			if repository != models.DefaultRepository || from != "10" {
				return nil, errors.New("unexpected location")
			}
			return defaultChanges("10", "11", "12"), nil
		},
		subjectsLinkedToFn: func(_ context.Context, _ string, c models.ChangeRecord) ([]*models.ReviewSubject, error) {
			switch c.Revision {
			case "10":
				return []*models.ReviewSubject{wi1}, nil
			case "11":
				return []*models.ReviewSubject{wi1, wi2}, nil
			}
			return nil, nil
		},
	}
}

func baseParams() JobParams {
	return JobParams{
		Scope:                     "proj",
		RepositoryLocations:       []RepositoryLocation{{Repository: models.DefaultRepository, FromRevision: "10"}},
		NotificationReceivers:     []string{"lead@example.com"},
		NotificationSender:        "review@example.com",
		NotificationSubjectPrefix: "[proj]",
		BaseURL:                   "https://review.example.com/",
	}
}

func TestJob_ReportsOrphanedAndFindings(t *testing.T) {
	host := linkedHost()
	host.needsReviewFn = func(_ context.Context, s *models.ReviewSubject) ([]string, error) {
		if s.ID == "WI-2" {
			return []string{"revisions reviewed by their author"}, nil
		}
		return nil, nil
	}
	notifier := &mockNotifier{}

	status := NewJob(baseParams(), host, nil, notifier, nil).Run(context.Background())
	require.Equal(t, models.JobStateOK, status.State)
	require.Equal(t, "1 orphaned revisions, 1 subjects to review again", status.Message)
	require.Equal(t, 2, host.needsReviewCalls)

	require.Len(t, notifier.sent, 1)
	n := notifier.sent[0]
	require.Equal(t, "[proj] Code Review Checker Results", n.Subject)
	require.Equal(t, []string{"lead@example.com"}, n.Receivers)
	require.Contains(t, n.Body, "default/12 by bob: fix 12\n")
	require.Contains(t, n.Body, "proj/WI-2 https://review.example.com/scopes/proj/subjects/WI-2/review")
	require.Contains(t, n.Body, "revisions reviewed by their author")
	require.NotContains(t, n.Body, "WI-1")
}

func TestJob_ForbiddenSubjects(t *testing.T) {
	host := linkedHost()
	host.runQueryFn = func(_ context.Context, _, query string) ([]*models.ReviewSubject, error) {
		require.Equal(t, "status:open", query)
		return []*models.ReviewSubject{wi1}, nil
	}
	params := baseParams()
	params.PermittedItemsQuery = "status:open"

	report, err := NewJob(params, host, nil, &mockNotifier{}, nil).Check(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Findings, 1)
	require.Equal(t, "WI-2", report.Findings[0].Subject.ID)
	require.Equal(t, []string{"forbidden"}, report.Findings[0].Reasons)
}

func TestJob_NothingFound(t *testing.T) {
	host := &mockHost{
		changesFn: func(context.Context, string, string) ([]models.ChangeRecord, error) {
			return defaultChanges("10"), nil
		},
		subjectsLinkedToFn: func(context.Context, string, models.ChangeRecord) ([]*models.ReviewSubject, error) {
			return []*models.ReviewSubject{wi1}, nil
		},
	}
	notifier := &mockNotifier{}
	status := NewJob(baseParams(), host, nil, notifier, nil).Run(context.Background())
	require.Equal(t, models.JobStateOK, status.State)
	require.Empty(t, notifier.sent)
}

func TestJob_NotificationFailureIsNotFatal(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("smtp down")}
	status := NewJob(baseParams(), linkedHost(), nil, notifier, nil).Run(context.Background())
	require.Equal(t, models.JobStateOK, status.State)
	require.Len(t, notifier.sent, 1)
}

func TestJob_GitLocation(t *testing.T) {
	git := &mockGit{changes: []models.ChangeRecord{
		{Repository: "tools", Revision: "aaa111"},
		{Repository: "tools", Revision: "bbb222"},
		{Repository: "tools", Revision: "ccc333"},
	}}
	var checked []string
	host := &mockHost{
		subjectsLinkedToFn: func(_ context.Context, _ string, c models.ChangeRecord) ([]*models.ReviewSubject, error) {
			checked = append(checked, c.Revision)
			return []*models.ReviewSubject{wi1}, nil
		},
	}
	params := baseParams()
	params.RepositoryLocations = []RepositoryLocation{{Repository: "tools", FromRevision: "bbb", GitPath: "/srv/tools"}}

	_, err := NewJob(params, host, git, nil, nil).Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"bbb222", "ccc333"}, checked)

	params.RepositoryLocations[0].FromRevision = "zzz"
	_, err = NewJob(params, host, git, nil, nil).Check(context.Background())
	require.ErrorIs(t, err, domain.ErrConfig)
}

func TestJob_Failures(t *testing.T) {
	t.Run("missing parameters", func(t *testing.T) {
		status := NewJob(JobParams{Scope: "proj"}, &mockHost{}, nil, nil, nil).Run(context.Background())
		require.Equal(t, models.JobStateFailed, status.State)
		require.Contains(t, status.Message, domain.ErrConfig.Error())
	})

	t.Run("host error", func(t *testing.T) {
		host := linkedHost()
		host.needsReviewFn = func(context.Context, *models.ReviewSubject) ([]string, error) {
			return nil, errors.New("db down")
		}
		status := NewJob(baseParams(), host, nil, nil, nil).Run(context.Background())
		require.Equal(t, models.JobStateFailed, status.State)
		require.Contains(t, status.Message, "db down")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		status := NewJob(baseParams(), linkedHost(), nil, nil, nil).Run(ctx)
		require.Equal(t, models.JobStateCancelled, status.State)
	})
}
