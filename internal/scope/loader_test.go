package scope

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
)

const sampleConfig = `
reviewedRevisionsField: reviewedRevisions
reviewerField: reviewer
inReviewStatus: inreview
successfulReviewWorkflowAction: approve
unsuccessfulReviewWorkflowAction: reopen
successfulReviewResolution: done
fastTrackPermittedLocationPattern: '.*\.(md|txt)'
fastTrackReviewer: docbot
reviewerRole: reviewer
unresolvedWorkItemWithRevisionsNeedsTimePoint: true
preventConcurrentReview: true
pastReviewers: [old-timer]
ignoredRepositories: [thirdparty]
`

func writeScope(t *testing.T, dir, scope, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, scope+".yaml"), []byte(content), 0o600))
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	require.Equal(t, "reviewedRevisions", s.ReviewedRevisionsField)
	require.Equal(t, "inreview", s.InReviewStatus)
	require.True(t, s.UnresolvedWithChangesNeedsPoint)
	require.True(t, s.PreventConcurrentReview)
	require.True(t, s.IsPastReviewer("old-timer"))
	require.True(t, s.IsIgnoredRepository("thirdparty"))
	require.True(t, s.FastTrackConfigured())
	require.True(t, s.PathPermittedForFastTrack("/docs/readme.md"))
	require.False(t, s.PathPermittedForFastTrack("/docs/readme.md.go"))
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("reviewerField: reviewer\n"))
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = Parse([]byte("reviewedRevisionsField: r\n"))
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = Parse([]byte("reviewedRevisionsField: r\nreviewerField: x\nfastTrackPermittedLocationPattern: '(['\n"))
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = Parse([]byte("reviewerField: [a"))
	require.ErrorIs(t, err, domain.ErrConfig)

	for _, reviewer := range []string{"fast,track", `fast\track`} {
		_, err = Parse([]byte("reviewedRevisionsField: r\nreviewerField: x\nfastTrackReviewer: '" + reviewer + "'\n"))
		require.ErrorIs(t, err, domain.ErrConfig, reviewer)
	}

	s, err := Parse([]byte("lastReviewedRevisionField: lastRev\nreviewerField: x\n"))
	require.NoError(t, err)
	require.False(t, s.FastTrackConfigured())
}

func TestLoader_CachesPerScope(t *testing.T) {
	dir := t.TempDir()
	writeScope(t, dir, "alpha", sampleConfig)
	l := NewLoader(dir)
	ctx := context.Background()

	first, err := l.Get(ctx, "alpha")
	require.NoError(t, err)

	writeScope(t, dir, "alpha", "reviewedRevisionsField: other\nreviewerField: other\n")
	second, err := l.Get(ctx, "alpha")
	require.NoError(t, err)
	require.Same(t, first, second)

	l.Invalidate("alpha")
	third, err := l.Get(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, "other", third.ReviewerField)
}

func TestLoader_Errors(t *testing.T) {
	l := NewLoader(t.TempDir())
	ctx := context.Background()

	_, err := l.Get(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrConfig)

	_, err = l.Get(ctx, "../etc")
	require.ErrorIs(t, err, domain.ErrConfig)
}
