package auth

import (
	"context"
)

// PasswordStatus reports whether the account has a password set.
// Accounts created through a social provider start without one.
type PasswordStatus struct {
	HasPassword bool `json:"has_password"`
}

// GetPasswordStatus returns the caller's password status.
func (s *Service) GetPasswordStatus(ctx context.Context, account *Account) (PasswordStatus, error) {
	user, err := s.GetUser(ctx, account)
	if err != nil {
		return PasswordStatus{}, err
	}
	return PasswordStatus{HasPassword: user.HasPassword()}, nil
}

// RequestPasswordReset issues a reset token and emails it. Rate limited
// per email address so the mailbox cannot be flooded.
func (s *Service) RequestPasswordReset(ctx context.Context, email, captcha string) error {
	if err := s.verifyCaptcha(ctx, captcha); err != nil {
		return err
	}

	user, err := s.repo.Users().GetByEmailAddress(ctx, email)
	if err != nil {
		return err
	}

	if !user.HasPassword() {
		return ErrPasswordNotSet
	}

	reached, err := s.repo.RateLimitReached(ctx, "reset", user.Email,
		s.limits.PasswordReset.Limit, s.limits.PasswordReset.Window, s.limits.PasswordReset.Timeout)
	if err != nil {
		return err
	}
	if reached {
		return ErrRateLimited
	}

	token, err := s.tokens.Issue(TokenResetPassword, &Claims{
		RegisteredClaims: jwtSubject(user.ID.String()),
		Email:            user.Email,
	}, 0)
	if err != nil {
		return err
	}

	if s.email == nil {
		return nil
	}

	return s.email.RequestPasswordReset(ctx, user.Email, token)
}

// ResetPassword finalizes a reset. The token is single use; a second
// redemption fails with ErrTokenAlreadyUsed even inside its lifetime.
func (s *Service) ResetPassword(ctx context.Context, req PasswordResetRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	claims, err := s.tokens.Decode(req.Token)
	if err != nil {
		return err
	}

	if claims.Kind != TokenResetPassword {
		return ErrWrongTokenType
	}

	if err := s.repo.UseToken(ctx, req.Token, s.tokens.Config().TTL(TokenResetPassword)); err != nil {
		return err
	}

	id, err := claims.UserID()
	if err != nil {
		return ErrTokenDecoding
	}

	hash, err := s.hasher.HashPassword(req.Password1)
	if err != nil {
		return err
	}

	if err := s.repo.Users().ApplyUpdate(ctx, id, UserUpdate{PasswordHash: &hash}); err != nil {
		return err
	}

	// Live sessions predate the new password; force a fresh login.
	if err := s.repo.Kick(ctx, id); err != nil {
		s.logger.Error("failed to kick after password reset", "user", id.String(), "error", err)
	}

	s.emitEvent(ctx, ActivityEventPasswordResetSuccess, ActorRef{ID: id.String(), Type: "user"}, id.String(), nil)
	return nil
}

// SetPassword gives a social-only account its first password. Accounts
// that already have one must go through ChangePassword.
func (s *Service) SetPassword(ctx context.Context, account *Account, req PasswordSetRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.GetUser(ctx, account)
	if err != nil {
		return err
	}

	if user.HasPassword() {
		return ErrPasswordAlreadySet
	}

	hash, err := s.hasher.HashPassword(req.Password1)
	if err != nil {
		return err
	}

	if err := s.repo.Users().ApplyUpdate(ctx, user.ID, UserUpdate{PasswordHash: &hash}); err != nil {
		return err
	}

	s.emitEvent(ctx, ActivityEventPasswordChanged, actorUser(user), user.ID.String(), nil)
	return nil
}

// ChangePassword rotates a password after checking the old one.
func (s *Service) ChangePassword(ctx context.Context, account *Account, req PasswordChangeRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.GetUser(ctx, account)
	if err != nil {
		return err
	}

	if !user.HasPassword() {
		return ErrPasswordNotSet
	}

	if err := s.hasher.ComparePasswordAndHash(req.OldPassword, user.PasswordHash); err != nil {
		return err
	}

	hash, err := s.hasher.HashPassword(req.Password1)
	if err != nil {
		return err
	}

	if err := s.repo.Users().ApplyUpdate(ctx, user.ID, UserUpdate{PasswordHash: &hash}); err != nil {
		return err
	}

	s.emitEvent(ctx, ActivityEventPasswordChanged, actorUser(user), user.ID.String(), nil)
	return nil
}
