package schools

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dabirhq/dabir/internal/messenger"
)

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r *fakeRow) Scan(dest ...any) error {
	return r.scanFunc(dest...)
}

type fakeDBTX struct {
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
}

func (d *fakeDBTX) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (d *fakeDBTX) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, nil
}

func (d *fakeDBTX) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if d.queryRowFunc != nil {
		return d.queryRowFunc(ctx, sql, args...)
	}
	return &fakeRow{scanFunc: func(dest ...any) error { return pgx.ErrNoRows }}
}

func TestBotTokenNotConfigured(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &fakeDBTX{})
	_, err := svc.BotToken(context.Background(), uuid.NewString(), messenger.ProviderTelegram)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestBotTokenEmptyTokenIsNotConfigured(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &fakeDBTX{
		queryRowFunc: func(context.Context, string, ...any) pgx.Row {
			return &fakeRow{scanFunc: func(dest ...any) error {
				*dest[0].(*string) = "   "
				return nil
			}}
		},
	})
	_, err := svc.BotToken(context.Background(), uuid.NewString(), messenger.ProviderBale)
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured for blank token, got %v", err)
	}
}

func TestBotTokenFound(t *testing.T) {
	t.Parallel()

	var gotArgs []any
	svc := NewService(nil, &fakeDBTX{
		queryRowFunc: func(_ context.Context, _ string, args ...any) pgx.Row {
			gotArgs = args
			return &fakeRow{scanFunc: func(dest ...any) error {
				*dest[0].(*string) = "123456:token"
				return nil
			}}
		},
	})
	token, err := svc.BotToken(context.Background(), uuid.NewString(), messenger.ProviderBale)
	if err != nil {
		t.Fatalf("bot token: %v", err)
	}
	if token != "123456:token" {
		t.Fatalf("unexpected token %q", token)
	}
	if len(gotArgs) != 2 || gotArgs[1] != "bale" {
		t.Fatalf("lookup should be scoped to the bale provider, got %v", gotArgs)
	}
}

func TestBotTokenInvalidSchoolID(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &fakeDBTX{})
	if _, err := svc.BotToken(context.Background(), "not-a-uuid", messenger.ProviderTelegram); err == nil {
		t.Fatal("expected error for malformed school id")
	}
}
