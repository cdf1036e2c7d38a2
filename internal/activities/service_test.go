package activities

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type fakeDBTX struct {
	queryFunc func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (d *fakeDBTX) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d *fakeDBTX) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if d.queryFunc != nil {
		return d.queryFunc(ctx, sql, args...)
	}
	return nil, pgx.ErrNoRows
}

func (d *fakeDBTX) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestListBuildsFilterClauses(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		filter   Filter
		wantSQL  []string
		wantArgs int
	}{
		{
			name:     "no filter",
			filter:   Filter{},
			wantSQL:  []string{"ORDER BY recorded_at DESC"},
			wantArgs: 0,
		},
		{
			name:     "student only",
			filter:   Filter{StudentID: uuid.NewString()},
			wantSQL:  []string{"student_id = $1"},
			wantArgs: 1,
		},
		{
			name:     "student and class",
			filter:   Filter{StudentID: uuid.NewString(), ClassID: uuid.NewString()},
			wantSQL:  []string{"student_id = $1", "class_id = $2"},
			wantArgs: 2,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var gotSQL string
			var gotArgs []any
			svc := NewService(nil, &fakeDBTX{
				queryFunc: func(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
					gotSQL = sql
					gotArgs = args
					return nil, pgx.ErrNoRows
				},
			})
			_, _ = svc.List(context.Background(), tc.filter)
			for _, fragment := range tc.wantSQL {
				if !strings.Contains(gotSQL, fragment) {
					t.Errorf("query missing %q: %s", fragment, gotSQL)
				}
			}
			if len(gotArgs) != tc.wantArgs {
				t.Errorf("expected %d args, got %d", tc.wantArgs, len(gotArgs))
			}
		})
	}
}

func TestListRejectsMalformedIDs(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &fakeDBTX{
		queryFunc: func(context.Context, string, ...any) (pgx.Rows, error) {
			t.Fatal("malformed id must not hit the store")
			return nil, nil
		},
	})
	if _, err := svc.List(context.Background(), Filter{StudentID: "not-a-uuid"}); err == nil {
		t.Fatal("expected an error for a malformed student id")
	}
}
