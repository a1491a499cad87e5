package session

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v4"
)

// CookieStore is a stateless store: the token is the session itself,
// encrypted as a compact JWE with a key derived from a configured secret.
// Logging out cannot revoke a copied token before it expires, so a TTL
// should always be set.
type CookieStore struct {
	key       []byte
	ttl       time.Duration
	encrypter jose.Encrypter
	now       func() time.Time
}

// NewCookieStore derives a 256-bit key from secret.
func NewCookieStore(secret string, ttl time.Duration) (*CookieStore, error) {
	if secret == "" {
		return nil, errors.New("cookie key is required")
	}
	sum := sha256.Sum256([]byte(secret))
	key := sum[:]

	enc, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.DIRECT, Key: key},
		(&jose.EncrypterOptions{}).WithType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypter: %w", err)
	}

	return &CookieStore{key: key, ttl: ttl, encrypter: enc, now: time.Now}, nil
}

func (c *CookieStore) Create(ctx context.Context, username string) (string, *Session, error) {
	s := newSession(username, c.now(), c.ttl)

	payload, err := json.Marshal(s)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal session: %w", err)
	}
	jwe, err := c.encrypter.Encrypt(payload)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encrypt session: %w", err)
	}
	token, err := jwe.CompactSerialize()
	if err != nil {
		return "", nil, fmt.Errorf("failed to serialize session: %w", err)
	}
	return token, s, nil
}

func (c *CookieStore) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	jwe, err := jose.ParseEncrypted(token,
		[]jose.KeyAlgorithm{jose.DIRECT},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return nil, ErrNoSession
	}
	payload, err := jwe.Decrypt(c.key)
	if err != nil {
		return nil, ErrNoSession
	}

	var s Session
	if err := json.Unmarshal(payload, &s); err != nil || s.Username == "" {
		return nil, ErrNoSession
	}
	if s.Expired(c.now()) {
		return nil, ErrNoSession
	}
	return &s, nil
}

// Invalidate is a no-op; the caller clears the cookie.
func (c *CookieStore) Invalidate(ctx context.Context, token string) error {
	return nil
}
