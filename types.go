package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CacheClient is the key/value capability the engine stores all mutable
// runtime state in: revocation facts, rate counters, used-token markers.
// Every mutation must be atomic at the backend, not read-then-write.
type CacheClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	// SetNX sets the key only if it does not exist and reports whether it
	// was set. Used to claim single-use markers and cooldown flags.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	// IncrWithTTL atomically increments the counter at key, creating it
	// at 1 with the given TTL. The TTL is planted in the same backend
	// round trip as the increment so the counter can never outlive it.
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// CaptchaVerifier validates a captcha challenge response.
type CaptchaVerifier interface {
	ValidateCaptcha(ctx context.Context, token string) (bool, error)
}

// EmailSender delivers action tokens out of band. Implementations are
// fire-and-forget collaborators; the engine never fails a primary
// operation on a send error.
type EmailSender interface {
	RequestVerification(ctx context.Context, email, token string) error
	RequestPasswordReset(ctx context.Context, email, token string) error
	CheckOldEmail(ctx context.Context, email, token string) error
	CheckNewEmail(ctx context.Context, email, token string) error
	RequestOAuthUnlink(ctx context.Context, email, token string) error
}

// NopLogger discards everything. Useful as a default for optional
// collaborators and in tests.
type NopLogger struct{}

func (NopLogger) Debug(string, ...any) {}
func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
