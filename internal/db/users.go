package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"readhub/internal/models"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

const userProfileColumns = `
	u.id, u.email, u.password_hash, u.provider, u.provider_subject,
	u.fcm_token, u.fcm_platform, u.status, u.last_login_at, u.created_at, u.updated_at,
	p.nickname, p.bio, p.avatar_url, p.is_public, p.level, p.experience, p.points,
	p.premium_until, p.created_at, p.updated_at`

// CreateWithProfile inserts the user row and its profile row in a single
// transaction. Both succeed or neither does. A UNIQUE violation on email or
// nickname surfaces as ErrDuplicate so callers can treat commit-time races the
// same as pre-check conflicts.
func (r *UserRepository) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	id, err := GenerateID("usr")
	if err != nil {
		return fmt.Errorf("generating user ID: %w", err)
	}
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting create transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, provider, provider_subject, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, user.Email, user.PasswordHash, user.Provider, user.ProviderSubject, models.StatusActive, now, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("creating user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO profiles (user_id, nickname, bio, avatar_url, is_public, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, profile.Nickname, profile.Bio, profile.AvatarURL, profile.IsPublic, now, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("creating profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if IsUniqueConstraintError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("committing create transaction: %w", err)
	}

	user.ID = id
	user.Status = models.StatusActive
	user.CreatedAt = now
	user.UpdatedAt = now
	profile.UserID = id
	profile.Level = 1
	profile.CreatedAt = now
	profile.UpdatedAt = now
	user.Profile = profile

	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx,
		`SELECT `+userProfileColumns+` FROM users u JOIN profiles p ON p.user_id = u.id WHERE u.id = ?`, id)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx,
		`SELECT `+userProfileColumns+` FROM users u JOIN profiles p ON p.user_id = u.id WHERE u.email = ?`, email)
}

func (r *UserRepository) FindByProviderSubject(ctx context.Context, provider, subject string) (*models.User, error) {
	return r.findOne(ctx,
		`SELECT `+userProfileColumns+` FROM users u JOIN profiles p ON p.user_id = u.id
          WHERE u.provider = ? AND u.provider_subject = ?`, provider, subject)
}

func (r *UserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("updating last login: %w", err)
	}
	return checkRowsAffected(result)
}

// LinkProvider upgrades a local account to a federated provider, keeping any
// stored password. Accounts never migrate back to provider 'local'.
func (r *UserRepository) LinkProvider(ctx context.Context, id, provider, subject string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET provider = ?, provider_subject = ?, updated_at = ? WHERE id = ? AND provider = ?`,
		provider, subject, time.Now().UTC(), id, models.ProviderLocal,
	)
	if err != nil {
		return fmt.Errorf("linking provider: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) SetPushToken(ctx context.Context, id, token, platform string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET fcm_token = ?, fcm_platform = ?, updated_at = ? WHERE id = ?`,
		token, platform, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("setting push token: %w", err)
	}
	return checkRowsAffected(result)
}

// ClearPushToken is idempotent: clearing an already-empty token is not an error.
func (r *UserRepository) ClearPushToken(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET fcm_token = NULL, fcm_platform = NULL, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("clearing push token: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) IsNicknameAvailable(ctx context.Context, nickname string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles WHERE nickname = ?`, nickname).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking nickname availability: %w", err)
	}
	return count == 0, nil
}

func (r *UserRepository) findOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	var u models.User
	var p models.Profile
	var lastLoginAt, premiumUntil sql.NullTime

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Provider,
		&u.ProviderSubject,
		&u.FCMToken,
		&u.FCMPlatform,
		&u.Status,
		&lastLoginAt,
		&u.CreatedAt,
		&u.UpdatedAt,
		&p.Nickname,
		&p.Bio,
		&p.AvatarURL,
		&p.IsPublic,
		&p.Level,
		&p.Experience,
		&p.Points,
		&premiumUntil,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.LastLoginAt = nullTimeToPtr(lastLoginAt)
	p.PremiumUntil = nullTimeToPtr(premiumUntil)
	p.UserID = u.ID
	u.Profile = &p

	return &u, nil
}
