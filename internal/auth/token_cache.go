package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	tokenKeyPrefix = "auth:token:"
	// TokenExpiryBuffer is how long before expiry a cached identity stops being trusted
	TokenExpiryBuffer = 30 * time.Second
)

// TokenCache represents a cached identity with its expiry time
type TokenCache struct {
	Subject   string    `json:"subject"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsValid checks if the identity is still usable with a buffer before expiry
func (tc *TokenCache) IsValid() bool {
	if tc == nil || tc.Subject == "" {
		return false
	}
	return time.Now().Add(TokenExpiryBuffer).Before(tc.ExpiresAt)
}

// CachingVerifier remembers identities of verified tokens in redis so repeat
// requests skip signature checks. Cache errors fall through to Next.
type CachingVerifier struct {
	Next   Verifier
	Client *redis.Client
}

func NewCachingVerifier(next Verifier, client *redis.Client) *CachingVerifier {
	return &CachingVerifier{Next: next, Client: client}
}

func (c *CachingVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	key := tokenKey(rawToken)

	if cached, err := c.get(ctx, key); err == nil && cached.IsValid() {
		return &Identity{Subject: cached.Subject, Email: cached.Email, ExpiresAt: cached.ExpiresAt}, nil
	}

	identity, err := c.Next.Verify(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	ttl := time.Until(identity.ExpiresAt) - TokenExpiryBuffer
	if ttl > 0 {
		_ = c.set(ctx, key, TokenCache{Subject: identity.Subject, Email: identity.Email, ExpiresAt: identity.ExpiresAt}, ttl)
	}
	return identity, nil
}

func (c *CachingVerifier) get(ctx context.Context, key string) (*TokenCache, error) {
	raw, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var cached TokenCache
	if err := json.Unmarshal(raw, &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token cache: %w", err)
	}
	return &cached, nil
}

func (c *CachingVerifier) set(ctx context.Context, key string, entry TokenCache, ttl time.Duration) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal token cache: %w", err)
	}
	return c.Client.Set(ctx, key, raw, ttl).Err()
}

// tokenKey never stores the bearer token itself.
func tokenKey(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return tokenKeyPrefix + hex.EncodeToString(sum[:])
}
