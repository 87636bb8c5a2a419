package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	revokedTokenPrefix  = "revoked:jti:"
	revokedFamilyPrefix = "revoked:family:"
)

// RevocationStore records revoked token ids and refresh-token families.
// Entries only need to outlive the longest-lived token that references them.
type RevocationStore interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	RevokeFamily(ctx context.Context, familyID string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
	IsFamilyRevoked(ctx context.Context, familyID string) (bool, error)
}

// RedisRevocationStore keeps the revocation list in Redis so revocations are
// visible to every instance immediately, with TTLs bounding growth.
type RedisRevocationStore struct {
	client *redis.Client
}

// NewRedisRevocationStore creates a Redis-backed revocation store.
func NewRedisRevocationStore(client *redis.Client) *RedisRevocationStore {
	return &RedisRevocationStore{client: client}
}

func (s *RedisRevocationStore) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.client.Set(ctx, revokedTokenPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) RevokeFamily(ctx context.Context, familyID string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := s.client.Set(ctx, revokedFamilyPrefix+familyID, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke family: %w", err)
	}
	return nil
}

func (s *RedisRevocationStore) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedTokenPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

func (s *RedisRevocationStore) IsFamilyRevoked(ctx context.Context, familyID string) (bool, error) {
	n, err := s.client.Exists(ctx, revokedFamilyPrefix+familyID).Result()
	if err != nil {
		return false, fmt.Errorf("check family revocation: %w", err)
	}
	return n > 0, nil
}

// Validator combines signature/claims checks with the revocation list.
// Every request path (header and websocket query) validates through here.
type Validator struct {
	tokens      *TokenService
	revocations RevocationStore
}

// NewValidator creates a validator.
func NewValidator(tokens *TokenService, revocations RevocationStore) *Validator {
	return &Validator{tokens: tokens, revocations: revocations}
}

// Validate parses the token and rejects revoked tokens and families.
func (v *Validator) Validate(ctx context.Context, tokenString string, expected TokenType) (*Claims, error) {
	claims, err := v.tokens.Parse(tokenString, expected)
	if err != nil {
		return nil, err
	}
	revoked, err := v.revocations.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	if claims.FamilyID != "" {
		revoked, err = v.revocations.IsFamilyRevoked(ctx, claims.FamilyID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}
