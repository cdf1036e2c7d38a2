package interactions

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dabirhq/dabir/internal/messenger"
)

type fakeDBTX struct {
	execFunc func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (d *fakeDBTX) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if d.execFunc != nil {
		return d.execFunc(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (d *fakeDBTX) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, nil
}

func (d *fakeDBTX) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestRecordUnknownStoresRow(t *testing.T) {
	t.Parallel()

	var gotArgs []any
	svc := NewService(nil, &fakeDBTX{
		execFunc: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			gotArgs = args
			return pgconn.CommandTag{}, nil
		},
	})
	err := svc.RecordUnknown(context.Background(), messenger.ProviderBale, " 42 ", "سلام", "unknown_chat_id")
	if err != nil {
		t.Fatalf("record unknown: %v", err)
	}
	if len(gotArgs) != 4 {
		t.Fatalf("expected 4 args, got %d", len(gotArgs))
	}
	if gotArgs[0] != "bale" || gotArgs[1] != "42" || gotArgs[2] != "سلام" || gotArgs[3] != "unknown_chat_id" {
		t.Fatalf("unexpected args %v", gotArgs)
	}
}

func TestRecordUnknownTruncatesOnRuneBoundary(t *testing.T) {
	t.Parallel()

	// Multibyte text longer than the storage cap; the cut must not split a rune.
	long := strings.Repeat("آ", 800)
	var stored string
	svc := NewService(nil, &fakeDBTX{
		execFunc: func(_ context.Context, _ string, args ...any) (pgconn.CommandTag, error) {
			stored = args[2].(string)
			return pgconn.CommandTag{}, nil
		},
	})
	if err := svc.RecordUnknown(context.Background(), messenger.ProviderTelegram, "1", long, "unknown_chat_id"); err != nil {
		t.Fatalf("record unknown: %v", err)
	}
	if len(stored) > 1000 {
		t.Fatalf("stored message exceeds cap: %d bytes", len(stored))
	}
	if !utf8.ValidString(stored) {
		t.Fatal("truncation split a rune")
	}
}
