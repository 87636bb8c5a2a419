package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrRefreshNotFound means the presented refresh token has no stored row.
	ErrRefreshNotFound = errors.New("refresh token not found")
	// ErrRefreshReused means the presented refresh token was already rotated
	// or revoked. Reuse of a rotated token signals theft; the whole family is
	// revoked as a side effect.
	ErrRefreshReused = errors.New("refresh token reused")
)

// RefreshToken is one link in a refresh-token family. Only a hash of the
// signed token is stored.
type RefreshToken struct {
	ID        uuid.UUID
	FamilyID  uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	ExpiresAt time.Time
	Rotated   bool
	Revoked   bool
	CreatedAt time.Time
}

// RefreshStore persists refresh-token families.
type RefreshStore interface {
	Insert(ctx context.Context, t *RefreshToken) error
	// Rotate marks the token for hash as rotated and returns it. Rotation is
	// serialized per row so a concurrent double-use cannot both succeed. If
	// the token was already rotated or revoked, the whole family is revoked
	// and ErrRefreshReused is returned together with the stored token.
	Rotate(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeFamily(ctx context.Context, familyID uuid.UUID) error
	// RevokeAllForUser revokes every family for the user (password reset)
	// and returns the affected family ids.
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}

// HashToken returns the hex SHA-256 of a signed token for storage lookup.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// RefreshRepository is the Postgres RefreshStore.
type RefreshRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshRepository creates a refresh token repository.
func NewRefreshRepository(pool *pgxpool.Pool) *RefreshRepository {
	return &RefreshRepository{pool: pool}
}

// Insert stores a new refresh token row.
func (r *RefreshRepository) Insert(ctx context.Context, t *RefreshToken) error {
	const q = `INSERT INTO refresh_tokens (id, family_id, user_id, token_hash, expires_at)
		VALUES (gen_random_uuid(), $1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, t.FamilyID, t.UserID, t.TokenHash, t.ExpiresAt).
		Scan(&t.ID, &t.CreatedAt)
}

// Rotate implements RefreshStore. The SELECT ... FOR UPDATE serializes
// concurrent refresh calls on the same token.
func (r *RefreshRepository) Rotate(ctx context.Context, tokenHash string) (*RefreshToken, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	const sel = `SELECT id, family_id, user_id, token_hash, expires_at, rotated, revoked, created_at
		FROM refresh_tokens WHERE token_hash = $1 FOR UPDATE`
	var t RefreshToken
	err = tx.QueryRow(ctx, sel, tokenHash).Scan(
		&t.ID, &t.FamilyID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Rotated, &t.Revoked, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRefreshNotFound
		}
		return nil, err
	}

	if t.Rotated || t.Revoked || time.Now().After(t.ExpiresAt) {
		if _, err := tx.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE family_id = $1`, t.FamilyID); err != nil {
			return nil, fmt.Errorf("revoke family: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit: %w", err)
		}
		return &t, ErrRefreshReused
	}

	if _, err := tx.Exec(ctx, `UPDATE refresh_tokens SET rotated = TRUE WHERE id = $1`, t.ID); err != nil {
		return nil, fmt.Errorf("mark rotated: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &t, nil
}

// RevokeFamily marks every token in the family revoked.
func (r *RefreshRepository) RevokeFamily(ctx context.Context, familyID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE family_id = $1`, familyID)
	return err
}

// RevokeAllForUser revokes every family belonging to the user.
func (r *RefreshRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked RETURNING family_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := make(map[uuid.UUID]struct{})
	var families []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		families = append(families, id)
	}
	return families, rows.Err()
}
