package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"golang.org/x/crypto/bcrypt"

	"github.com/dabirhq/dabir/internal/db"
	"github.com/dabirhq/dabir/internal/messenger"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

const userColumns = `id, school_id, username, password_hash, full_name, role, phone,
	telegram_chat_id, bale_chat_id, ai_model_preference, created_at, updated_at`

// Service provides user CRUD and messenger identity resolution.
type Service struct {
	conn   db.DBTX
	logger *slog.Logger
}

// NewService creates a user service.
func NewService(log *slog.Logger, conn db.DBTX) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		conn:   conn,
		logger: log.With(slog.String("service", "users")),
	}
}

// Create inserts a new user with a bcrypt-hashed password.
func (s *Service) Create(ctx context.Context, req CreateRequest) (User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return User{}, fmt.Errorf("username is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	pref := strings.TrimSpace(req.AIModelPreference)
	if pref == "" {
		pref = ModelPreferenceCloud
	}
	var schoolID pgtype.UUID
	if strings.TrimSpace(req.SchoolID) != "" {
		if schoolID, err = db.ParseUUID(req.SchoolID); err != nil {
			return User{}, err
		}
	}
	row := s.conn.QueryRow(ctx, `
		INSERT INTO users (school_id, username, password_hash, full_name, role, phone,
			telegram_chat_id, bale_chat_id, ai_model_preference)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userColumns,
		schoolID, username, string(hash), strings.TrimSpace(req.FullName), req.Role,
		db.Text(req.Phone), db.Text(req.TelegramChatID), db.Text(req.BaleChatID), pref,
	)
	user, _, err := scanUser(row)
	return user, err
}

// Get returns a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return User{}, err
	}
	row := s.conn.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, pgID)
	user, _, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// List returns users, optionally filtered by school.
func (s *Service) List(ctx context.Context, schoolID string) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at`
	args := []any{}
	if strings.TrimSpace(schoolID) != "" {
		pgID, err := db.ParseUUID(schoolID)
		if err != nil {
			return nil, err
		}
		query = `SELECT ` + userColumns + ` FROM users WHERE school_id = $1 ORDER BY created_at`
		args = append(args, pgID)
	}
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []User{}
	for rows.Next() {
		user, _, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, user)
	}
	return items, rows.Err()
}

// Update applies the non-nil fields of req to the user.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (User, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if req.FullName != nil {
		current.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		current.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.SchoolID != nil {
		current.SchoolID = strings.TrimSpace(*req.SchoolID)
	}
	if req.TelegramChatID != nil {
		current.TelegramChatID = strings.TrimSpace(*req.TelegramChatID)
	}
	if req.BaleChatID != nil {
		current.BaleChatID = strings.TrimSpace(*req.BaleChatID)
	}
	if req.AIModelPreference != nil && strings.TrimSpace(*req.AIModelPreference) != "" {
		current.AIModelPreference = strings.TrimSpace(*req.AIModelPreference)
	}
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return User{}, err
	}
	var schoolID pgtype.UUID
	if current.SchoolID != "" {
		if schoolID, err = db.ParseUUID(current.SchoolID); err != nil {
			return User{}, err
		}
	}
	row := s.conn.QueryRow(ctx, `
		UPDATE users
		SET school_id = $2, full_name = $3, phone = $4, telegram_chat_id = $5,
			bale_chat_id = $6, ai_model_preference = $7, updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		pgID, schoolID, current.FullName, db.Text(current.Phone),
		db.Text(current.TelegramChatID), db.Text(current.BaleChatID), current.AIModelPreference,
	)
	user, _, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// Delete removes a user.
func (s *Service) Delete(ctx context.Context, id string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	tag, err := s.conn.Exec(ctx, `DELETE FROM users WHERE id = $1`, pgID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByChatID resolves a messenger chat id to a user. ErrNotFound is a
// normal outcome for chats that never registered.
func (s *Service) FindByChatID(ctx context.Context, provider messenger.Provider, chatID string) (User, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return User{}, ErrNotFound
	}
	column := "telegram_chat_id"
	if provider == messenger.ProviderBale {
		column = "bale_chat_id"
	}
	row := s.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1 LIMIT 1`, chatID)
	user, _, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return user, err
}

// Authenticate verifies a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (User, error) {
	row := s.conn.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, strings.TrimSpace(username))
	user, hash, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrInvalidCredentials
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// SetPassword replaces the user's password hash.
func (s *Service) SetPassword(ctx context.Context, id, password string) error {
	pgID, err := db.ParseUUID(id)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	tag, err := s.conn.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, pgID, string(hash))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("admin username is required")
	}
	row := s.conn.QueryRow(ctx, `SELECT count(*) FROM users WHERE username = $1`, username)
	var count int64
	if err := row.Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := s.Create(ctx, CreateRequest{
		Username: username,
		Password: password,
		FullName: "مدیر سامانه",
		Role:     RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	s.logger.Info("admin user created", slog.String("username", username))
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (User, string, error) {
	var (
		id        pgtype.UUID
		schoolID  pgtype.UUID
		username  string
		hash      string
		fullName  string
		role      string
		phone     pgtype.Text
		tgChatID  pgtype.Text
		baleChat  pgtype.Text
		modelPref string
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	if err := row.Scan(&id, &schoolID, &username, &hash, &fullName, &role, &phone,
		&tgChatID, &baleChat, &modelPref, &createdAt, &updatedAt); err != nil {
		return User{}, "", err
	}
	return User{
		ID:                db.UUIDString(id),
		SchoolID:          db.UUIDString(schoolID),
		Username:          username,
		FullName:          fullName,
		Role:              role,
		Phone:             phone.String,
		TelegramChatID:    tgChatID.String,
		BaleChatID:        baleChat.String,
		AIModelPreference: modelPref,
		CreatedAt:         createdAt.Time,
		UpdatedAt:         updatedAt.Time,
	}, hash, nil
}
