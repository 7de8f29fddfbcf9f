package auth

import (
	"context"
)

// RequestEmailVerification re-sends the verification email for the
// caller's current address.
func (s *Service) RequestEmailVerification(ctx context.Context, account *Account) error {
	user, err := s.GetUser(ctx, account)
	if err != nil {
		return err
	}

	if user.Verified {
		return ErrEmailAlreadyVerified
	}

	reached, err := s.repo.RateLimitReached(ctx, string(TokenVerifyEmail), user.ID.String(),
		s.limits.VerifyEmail.Limit, s.limits.VerifyEmail.Window, s.limits.VerifyEmail.Timeout)
	if err != nil {
		return err
	}
	if reached {
		return ErrRateLimited
	}

	token, err := s.tokens.Issue(TokenVerifyEmail, verificationClaims(user), 0)
	if err != nil {
		return err
	}

	if s.email == nil {
		return nil
	}

	return s.email.RequestVerification(ctx, user.Email, token)
}

// VerifyEmail redeems a verification token. The token binds the address
// it was issued for; if the account's email changed in between, the
// token is rejected with ErrEmailMismatch.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return err
	}

	if claims.Kind != TokenVerifyEmail {
		return ErrWrongTokenType
	}

	id, err := claims.UserID()
	if err != nil {
		return ErrTokenDecoding
	}

	user, err := s.repo.Users().GetByID(ctx, id)
	if err != nil {
		return err
	}

	if user.Verified {
		return ErrEmailAlreadyVerified
	}

	if user.Email != claims.Email {
		return ErrEmailMismatch
	}

	if err := s.repo.UseToken(ctx, token, s.tokens.Config().TTL(TokenVerifyEmail)); err != nil {
		return err
	}

	if err := s.repo.Users().ApplyUpdate(ctx, user.ID, UserUpdate{Verified: ptr(true)}); err != nil {
		return err
	}

	s.emitEvent(ctx, ActivityEventEmailVerified, actorUser(user), user.ID.String(), nil)
	return nil
}

// RequestEmailChange starts the two-step change flow: a confirmation
// token goes to the CURRENT address first. The token carries the new
// address so the follow-up step knows where to continue.
func (s *Service) RequestEmailChange(ctx context.Context, account *Account, req EmailChangeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.GetUser(ctx, account)
	if err != nil {
		return err
	}

	if req.Email == user.Email {
		return ErrSameEmail
	}

	if _, err := s.repo.Users().GetByEmailAddress(ctx, req.Email); err == nil {
		return ErrEmailAlreadyExists
	} else if !IsUserNotFound(err) {
		return err
	}

	reached, err := s.repo.RateLimitReached(ctx, "request_email_change", user.ID.String(),
		s.limits.ChangeEmail.Limit, s.limits.ChangeEmail.Window, s.limits.ChangeEmail.Timeout)
	if err != nil {
		return err
	}
	if reached {
		return ErrRateLimited
	}

	token, err := s.tokens.Issue(TokenChangeEmailOld, &Claims{
		RegisteredClaims: jwtSubject(user.ID.String()),
		Email:            req.Email,
	}, 0)
	if err != nil {
		return err
	}

	if s.email == nil {
		return nil
	}

	return s.email.CheckOldEmail(ctx, user.Email, token)
}

// ConfirmOldEmail redeems the current-address token and forwards a
// second token to the new address.
func (s *Service) ConfirmOldEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return err
	}

	if claims.Kind != TokenChangeEmailOld {
		return ErrWrongTokenType
	}

	if err := s.repo.UseToken(ctx, token, s.tokens.Config().TTL(TokenChangeEmailOld)); err != nil {
		return err
	}

	next, err := s.tokens.Issue(TokenChangeEmailNew, &Claims{
		RegisteredClaims: jwtSubject(claims.Subject),
		Email:            claims.Email,
	}, 0)
	if err != nil {
		return err
	}

	if s.email == nil {
		return nil
	}

	return s.email.CheckNewEmail(ctx, claims.Email, next)
}

// ConfirmNewEmail redeems the new-address token and applies the change.
func (s *Service) ConfirmNewEmail(ctx context.Context, token string) error {
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return err
	}

	if claims.Kind != TokenChangeEmailNew {
		return ErrWrongTokenType
	}

	id, err := claims.UserID()
	if err != nil {
		return ErrTokenDecoding
	}

	if err := s.repo.UseToken(ctx, token, s.tokens.Config().TTL(TokenChangeEmailNew)); err != nil {
		return err
	}

	email := claims.Email
	if err := s.repo.Users().ApplyUpdate(ctx, id, UserUpdate{Email: &email}); err != nil {
		return err
	}

	s.emitEvent(ctx, ActivityEventEmailChanged, ActorRef{ID: id.String(), Type: "user"}, id.String(), map[string]any{
		"email": email,
	})
	return nil
}

// ChangeUsername renames the account. Session tokens keep the old
// username snapshot until the next refresh.
func (s *Service) ChangeUsername(ctx context.Context, account *Account, req UsernameChangeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.GetUser(ctx, account)
	if err != nil {
		return err
	}

	if req.Username == user.Username {
		return ErrSameUsername
	}

	if _, err := s.repo.Users().GetByUsername(ctx, req.Username); err == nil {
		return ErrUsernameAlreadyExists
	} else if !IsUserNotFound(err) {
		return err
	}

	username := req.Username
	if err := s.repo.Users().ApplyUpdate(ctx, user.ID, UserUpdate{Username: &username}); err != nil {
		return err
	}

	s.emitEvent(ctx, ActivityEventUsernameChanged, actorUser(user), user.ID.String(), map[string]any{
		"from": user.Username,
		"to":   username,
	})
	return nil
}
