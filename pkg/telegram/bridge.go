// Package telegram pairs a browser waiting for a Telegram account link with
// the bot update that proves ownership of that account.
package telegram

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"bounty_hunter/pkg/auth"
)

const DefaultLinkTimeout = 30 * time.Second

var (
	ErrUnknownToken    = errors.New("unknown or expired link token")
	ErrAlreadyResolved = errors.New("link token already used")
	ErrLinkTimeout     = errors.New("telegram link timed out")
)

type pendingLink struct {
	userID   string
	result   chan *auth.TelegramUserData
	resolved bool
	expires  time.Time
}

// Bridge holds one-shot link tokens. Every token resolves at most once and is
// deregistered when its waiter returns.
type Bridge struct {
	mu      sync.Mutex
	pending map[string]*pendingLink
	timeout time.Duration
	now     func() time.Time
}

func NewBridge(timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = DefaultLinkTimeout
	}
	return &Bridge{
		pending: make(map[string]*pendingLink),
		timeout: timeout,
		now:     time.Now,
	}
}

func (b *Bridge) Timeout() time.Duration {
	return b.timeout
}

// Register opens a link attempt for userID and returns its token.
func (b *Bridge) Register(userID string) (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate link token: %w", err)
	}
	// deep-link payloads allow [A-Za-z0-9_-]
	token := base64.RawURLEncoding.EncodeToString(raw)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for t, p := range b.pending {
		if now.After(p.expires) {
			delete(b.pending, t)
		}
	}

	b.pending[token] = &pendingLink{
		userID:  userID,
		result:  make(chan *auth.TelegramUserData, 1),
		expires: now.Add(b.timeout),
	}
	return token, nil
}

// Resolve delivers the Telegram account that used token.
func (b *Bridge) Resolve(token string, user *auth.TelegramUserData) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, ok := b.pending[token]
	if !ok || b.now().After(p.expires) {
		return ErrUnknownToken
	}
	if p.resolved {
		return ErrAlreadyResolved
	}

	p.resolved = true
	p.result <- user
	return nil
}

// Await blocks until token is resolved, its deadline passes or ctx ends.
func (b *Bridge) Await(ctx context.Context, token string) (string, *auth.TelegramUserData, error) {
	b.mu.Lock()
	p, ok := b.pending[token]
	b.mu.Unlock()
	if !ok {
		return "", nil, ErrUnknownToken
	}
	defer b.deregister(token)

	timer := time.NewTimer(p.expires.Sub(b.now()))
	defer timer.Stop()

	select {
	case user := <-p.result:
		return p.userID, user, nil
	case <-timer.C:
		return "", nil, ErrLinkTimeout
	case <-ctx.Done():
		return "", nil, ctx.Err()
	}
}

func (b *Bridge) deregister(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, token)
}

func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
