package users

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"

	"github.com/dabirhq/dabir/internal/messenger"
)

// fakeRow implements pgx.Row with a custom scan function.
type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r *fakeRow) Scan(dest ...any) error {
	return r.scanFunc(dest...)
}

// fakeDBTX implements db.DBTX for unit testing.
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

// makeUserRow creates a fakeRow that populates a user row via Scan.
func makeUserRow(userID, schoolID pgtype.UUID, role, passwordHash, chatID string) *fakeRow {
	return &fakeRow{
		scanFunc: func(dest ...any) error {
			if len(dest) < 12 {
				return pgx.ErrNoRows
			}
			*dest[0].(*pgtype.UUID) = userID
			*dest[1].(*pgtype.UUID) = schoolID
			*dest[2].(*string) = "mohammadi"
			*dest[3].(*string) = passwordHash
			*dest[4].(*string) = "آقای محمدی"
			*dest[5].(*string) = role
			*dest[6].(*pgtype.Text) = pgtype.Text{}
			*dest[7].(*pgtype.Text) = pgtype.Text{String: chatID, Valid: chatID != ""}
			*dest[8].(*pgtype.Text) = pgtype.Text{}
			*dest[9].(*string) = ModelPreferenceCloud
			*dest[10].(*pgtype.Timestamptz) = pgtype.Timestamptz{}
			*dest[11].(*pgtype.Timestamptz) = pgtype.Timestamptz{}
			return nil
		},
	}
}

func newUUID() pgtype.UUID {
	return pgtype.UUID{Bytes: uuid.New(), Valid: true}
}

func TestFindByChatIDNotFound(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &fakeDBTX{})
	_, err := svc.FindByChatID(context.Background(), messenger.ProviderTelegram, "12345")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByChatIDEmptyChatID(t *testing.T) {
	t.Parallel()

	svc := NewService(nil, &fakeDBTX{
		queryRowFunc: func(context.Context, string, ...any) pgx.Row {
			t.Fatal("empty chat id must not hit the store")
			return nil
		},
	})
	_, err := svc.FindByChatID(context.Background(), messenger.ProviderTelegram, "  ")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFindByChatIDMapsRow(t *testing.T) {
	t.Parallel()

	userID := newUUID()
	schoolID := newUUID()
	var gotSQL string
	svc := NewService(nil, &fakeDBTX{
		queryRowFunc: func(_ context.Context, sql string, _ ...any) pgx.Row {
			gotSQL = sql
			return makeUserRow(userID, schoolID, RoleTeacher, "x", "777")
		},
	})
	user, err := svc.FindByChatID(context.Background(), messenger.ProviderTelegram, "777")
	if err != nil {
		t.Fatalf("find by chat id: %v", err)
	}
	if user.Role != RoleTeacher {
		t.Fatalf("unexpected role %q", user.Role)
	}
	if user.SchoolID == "" {
		t.Fatal("school id should be populated")
	}
	if !strings.Contains(gotSQL, "telegram_chat_id") {
		t.Fatalf("telegram lookup should use telegram_chat_id column, got %q", gotSQL)
	}
}

func TestFindByChatIDBaleColumn(t *testing.T) {
	t.Parallel()

	var gotSQL string
	svc := NewService(nil, &fakeDBTX{
		queryRowFunc: func(_ context.Context, sql string, _ ...any) pgx.Row {
			gotSQL = sql
			return &fakeRow{scanFunc: func(...any) error { return pgx.ErrNoRows }}
		},
	})
	_, _ = svc.FindByChatID(context.Background(), messenger.ProviderBale, "42")
	if !strings.Contains(gotSQL, "bale_chat_id") {
		t.Fatalf("bale lookup should use bale_chat_id column, got %q", gotSQL)
	}
}

func TestAuthenticateWrongPassword(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	svc := NewService(nil, &fakeDBTX{
		queryRowFunc: func(context.Context, string, ...any) pgx.Row {
			return makeUserRow(newUUID(), pgtype.UUID{}, RolePrincipal, string(hash), "")
		},
	})
	if _, err := svc.Authenticate(context.Background(), "mohammadi", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "mohammadi", "correct-horse"); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}
