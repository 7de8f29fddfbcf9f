package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const massLogoutKey = "users:mass_logout"

// RevocationStore keeps the live revocation facts the authorization
// engine consults on every request: per-user ban flags, per-user kick
// timestamps, the global mass-logout timestamp, and the one-shot markers
// that make action tokens single-use.
//
// Every fact carries a TTL bounded by the longest-lived token it must
// outlive: the ban flag lives for one access-token lifetime (outstanding
// access tokens would have needed refreshing after that anyway), kick and
// mass-logout live for one refresh-token lifetime.
type RevocationStore struct {
	cache      CacheClient
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewRevocationStore creates a store whose fact TTLs are tied to the
// session token lifetimes.
func NewRevocationStore(cache CacheClient, accessTTL, refreshTTL time.Duration) *RevocationStore {
	return &RevocationStore{
		cache:      cache,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// SetBanned plants the ban lookup key so outstanding tokens become
// checkable-invalid without a database roundtrip.
func (rs *RevocationStore) SetBanned(ctx context.Context, id uuid.UUID) error {
	return rs.cache.Set(ctx, banKey(id), "1", rs.accessTTL)
}

// ClearBanned removes the ban lookup key.
func (rs *RevocationStore) ClearBanned(ctx context.Context, id uuid.UUID) error {
	return rs.cache.Delete(ctx, banKey(id))
}

// WasRecentlyBanned reports whether the ban lookup key is present.
func (rs *RevocationStore) WasRecentlyBanned(ctx context.Context, id uuid.UUID) (bool, error) {
	val, err := rs.cache.Get(ctx, banKey(id))
	if err != nil {
		return false, err
	}
	return val != "", nil
}

// Kick invalidates every token the user holds that was issued before now.
func (rs *RevocationStore) Kick(ctx context.Context, id uuid.UUID) error {
	now := time.Now().Unix()
	return rs.cache.Set(ctx, kickKey(id), strconv.FormatInt(now, 10), rs.refreshTTL)
}

// Unkick clears the kick fact.
func (rs *RevocationStore) Unkick(ctx context.Context, id uuid.UUID) error {
	return rs.cache.Delete(ctx, kickKey(id))
}

// WasKicked reports whether a token issued at iat is invalidated by a
// kick fact for the user.
func (rs *RevocationStore) WasKicked(ctx context.Context, id uuid.UUID, iat time.Time) (bool, error) {
	return rs.tsAtLeast(ctx, kickKey(id), iat)
}

// ActivateMassLogout stamps now as the global logout boundary; every
// token issued before it stops authorizing, for every user.
func (rs *RevocationStore) ActivateMassLogout(ctx context.Context) error {
	now := time.Now().Unix()
	return rs.cache.Set(ctx, massLogoutKey, strconv.FormatInt(now, 10), rs.refreshTTL)
}

// DeactivateMassLogout clears the global logout boundary.
func (rs *RevocationStore) DeactivateMassLogout(ctx context.Context) error {
	return rs.cache.Delete(ctx, massLogoutKey)
}

// InMassLogout reports whether a token issued at iat predates the active
// mass-logout boundary.
func (rs *RevocationStore) InMassLogout(ctx context.Context, iat time.Time) (bool, error) {
	return rs.tsAtLeast(ctx, massLogoutKey, iat)
}

// MassLogoutTS returns the active boundary, or nil when inactive.
func (rs *RevocationStore) MassLogoutTS(ctx context.Context) (*time.Time, error) {
	val, err := rs.cache.Get(ctx, massLogoutKey)
	if err != nil {
		return nil, err
	}
	if val == "" {
		return nil, nil
	}

	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed mass logout timestamp: %w", err)
	}

	ts := time.Unix(sec, 0).UTC()
	return &ts, nil
}

// UseToken atomically claims the one-shot marker for a single-use token.
// The marker shares the token's own TTL, after which the token has
// expired anyway. A second claim fails with ErrTokenAlreadyUsed.
func (rs *RevocationStore) UseToken(ctx context.Context, token string, ttl time.Duration) error {
	set, err := rs.cache.SetNX(ctx, usedTokenKey(token), "1", ttl)
	if err != nil {
		return err
	}
	if !set {
		return ErrTokenAlreadyUsed
	}
	return nil
}

func (rs *RevocationStore) tsAtLeast(ctx context.Context, key string, iat time.Time) (bool, error) {
	val, err := rs.cache.Get(ctx, key)
	if err != nil {
		return false, err
	}
	if val == "" {
		return false, nil
	}

	sec, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return false, fmt.Errorf("malformed revocation timestamp at %s: %w", key, err)
	}

	return sec >= iat.Unix(), nil
}

func banKey(id uuid.UUID) string {
	return "users:ban:" + id.String()
}

func kickKey(id uuid.UUID) string {
	return "users:kick:" + id.String()
}

// Tokens are hashed before keying so the cache never stores a live
// credential.
func usedTokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "users:token:used:" + hex.EncodeToString(sum[:])
}
