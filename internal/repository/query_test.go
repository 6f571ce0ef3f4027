package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AlekseyZapadovnikov/code-review/internal/domain"
)

func TestCompileQuery(t *testing.T) {
	now := time.Date(2024, time.March, 5, 23, 30, 0, 0, time.UTC)
	moscow := time.FixedZone("MSK", 3*60*60)

	tests := []struct {
		name  string
		text  string
		loc   *time.Location
		where string
		args  []any
	}{
		{
			name:  "status and empty field",
			text:  "status:inreview AND field.reviewer:EMPTY",
			loc:   time.UTC,
			where: "s.status = $2 AND NOT EXISTS (SELECT 1 FROM subject_fields f WHERE f.scope = s.scope AND f.subject_id = s.subject_id AND f.name = $3 AND f.value <> '')",
			args:  []any{"inreview", "reviewer"},
		},
		{
			name:  "field value and resolution",
			text:  "field.reviewer:bob resolution:EMPTY",
			loc:   time.UTC,
			where: "EXISTS (SELECT 1 FROM subject_fields f WHERE f.scope = s.scope AND f.subject_id = s.subject_id AND f.name = $2 AND f.value = $3) AND s.resolution = ''",
			args:  []any{"reviewer", "bob"},
		},
		{
			name:  "id list strips scope",
			text:  "id:(proj/WI-1 WI-2)",
			loc:   time.UTC,
			where: "s.subject_id = ANY($2)",
			args:  []any{[]string{"WI-1", "WI-2"}},
		},
		{
			name:  "today uses configured zone",
			text:  "updated:today",
			loc:   moscow,
			where: "s.updated_at >= $2 AND s.updated_at < $3",
			args: []any{
				time.Date(2024, time.March, 6, 0, 0, 0, 0, moscow),
				time.Date(2024, time.March, 7, 0, 0, 0, 0, moscow),
			},
		},
		{
			name:  "explicit date and timepoint",
			text:  "updated:2024-01-31 AND timepoint:1.0",
			loc:   time.UTC,
			where: "s.updated_at >= $2 AND s.updated_at < $3 AND s.time_point = $4",
			args: []any{
				time.Date(2024, time.January, 31, 0, 0, 0, 0, time.UTC),
				time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC),
				"1.0",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := compileQuery(tc.text, 2, now, tc.loc)
			require.NoError(t, err)
			require.Equal(t, tc.where, q.where)
			require.Equal(t, tc.args, q.args)
		})
	}
}

func TestCompileQuery_Errors(t *testing.T) {
	now := time.Now()
	for _, text := range []string{
		"",
		"   AND  ",
		"status",
		"status:",
		"owner:me",
		"id:(a b",
		"id:a)",
		"updated:yesterday",
		"field.:x",
	} {
		_, err := compileQuery(text, 2, now, time.UTC)
		require.ErrorIs(t, err, domain.ErrInvalidQuery, text)
	}
}
