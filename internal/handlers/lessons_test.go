package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/labstack/echo/v4"

	"github.com/dabirhq/dabir/internal/db"
	"github.com/dabirhq/dabir/internal/lessons"
	"github.com/dabirhq/dabir/internal/users"
)

type fakeDBTX struct {
	queryFunc    func(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	queryRowFunc func(ctx context.Context, sql string, args ...any) pgx.Row
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

func (d *fakeDBTX) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if d.queryRowFunc != nil {
		return d.queryRowFunc(ctx, sql, args...)
	}
	return nil
}

type fakeRow struct {
	scanFunc func(dest ...any) error
}

func (r fakeRow) Scan(dest ...any) error { return r.scanFunc(dest...) }

// signedContext builds an echo context carrying the decoded JWT the auth
// middleware would have set.
func signedContext(t *testing.T, method, target, body string, claims jwt.MapClaims) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", &jwt.Token{Valid: true, Claims: claims})
	return c, rec
}

func TestCreateLessonPinsPrincipalSchool(t *testing.T) {
	t.Parallel()

	schoolID := uuid.NewString()
	var gotArgs []any
	conn := &fakeDBTX{
		queryRowFunc: func(_ context.Context, _ string, args ...any) pgx.Row {
			gotArgs = args
			return fakeRow{scanFunc: func(dest ...any) error {
				id, _ := db.ParseUUID(uuid.NewString())
				sid, _ := db.ParseUUID(schoolID)
				now := pgtype.Timestamptz{Time: time.Now(), Valid: true}
				*dest[0].(*pgtype.UUID) = id
				*dest[1].(*pgtype.UUID) = sid
				*dest[2].(*string) = "ریاضی"
				*dest[3].(*pgtype.Timestamptz) = now
				*dest[4].(*pgtype.Timestamptz) = now
				return nil
			}}
		},
	}
	h := NewLessonsHandler(nil, lessons.NewService(nil, conn))

	// The body omits school_id; the principal's own school is filled in
	// before validation runs, so this must not 400.
	c, rec := signedContext(t, http.MethodPost, "/api/lessons", `{"name":"ریاضی"}`, jwt.MapClaims{
		"user_id":   uuid.NewString(),
		"role":      users.RolePrincipal,
		"school_id": schoolID,
	})
	if err := h.CreateLesson(c); err != nil {
		t.Fatalf("create lesson: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if len(gotArgs) != 2 {
		t.Fatalf("expected 2 insert args, got %d", len(gotArgs))
	}
	if got := db.UUIDString(gotArgs[0].(pgtype.UUID)); got != schoolID {
		t.Fatalf("lesson stored under school %s, want %s", got, schoolID)
	}
}
