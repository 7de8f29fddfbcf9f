package auth

import (
	"context"
)

// Authorizer decides whether a decoded token still grants access, by
// combining the claim snapshot with the live revocation facts. It runs on
// every access-token-gated request and on every refresh redemption.
type Authorizer struct {
	revocations *RevocationStore
}

// NewAuthorizer creates an Authorizer over the revocation store.
func NewAuthorizer(revocations *RevocationStore) *Authorizer {
	return &Authorizer{revocations: revocations}
}

// Authorize checks, in order and short-circuiting: the token kind, the
// global mass-logout boundary, the per-user kick boundary, and the ban
// lookup key. Kind mismatch is ErrWrongTokenType; every revocation fact
// collapses into ErrNotAuthorized.
//
// A ban that post-dates the persisted record still needs the caller to
// re-fetch the user on refresh redemption; that check lives in the
// service layer because it requires the user store.
func (a *Authorizer) Authorize(ctx context.Context, claims *Claims, expected TokenKind) error {
	if claims == nil || claims.Kind != expected {
		return ErrWrongTokenType
	}

	id, err := claims.UserID()
	if err != nil {
		return ErrTokenDecoding
	}

	iat := claims.IssuedTime()

	massLogout, err := a.revocations.InMassLogout(ctx, iat)
	if err != nil {
		return err
	}
	if massLogout {
		return ErrNotAuthorized
	}

	kicked, err := a.revocations.WasKicked(ctx, id, iat)
	if err != nil {
		return err
	}
	if kicked {
		return ErrNotAuthorized
	}

	banned, err := a.revocations.WasRecentlyBanned(ctx, id)
	if err != nil {
		return err
	}
	if banned {
		return ErrNotAuthorized
	}

	return nil
}
