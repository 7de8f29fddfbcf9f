package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MassLogoutStatus reports whether a mass logout is in force and since
// when.
type MassLogoutStatus struct {
	Active bool       `json:"active"`
	Date   *time.Time `json:"date,omitempty"`
}

// AdminService exposes the moderation surface. Transports gate it on
// the admin role before calling in.
type AdminService struct {
	repo     Repo
	activity ActivitySink
	logger   Logger
}

// NewAdminService wires the admin surface over the repository façade.
func NewAdminService(repo Repo) *AdminService {
	return &AdminService{
		repo:     repo,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

func (s *AdminService) WithLogger(logger Logger) *AdminService {
	if logger != nil {
		s.logger = logger
	}
	return s
}

func (s *AdminService) WithActivitySink(sink ActivitySink) *AdminService {
	s.activity = normalizeActivitySink(sink)
	return s
}

// Ban deactivates the account and revokes its live sessions for the
// remainder of the access token window.
func (s *AdminService) Ban(ctx context.Context, actor *Account, id uuid.UUID) error {
	if err := s.repo.Ban(ctx, id); err != nil {
		return err
	}
	s.record(ctx, ActivityEventUserBanned, actor, id, nil)
	return nil
}

func (s *AdminService) Unban(ctx context.Context, actor *Account, id uuid.UUID) error {
	if err := s.repo.Unban(ctx, id); err != nil {
		return err
	}
	s.record(ctx, ActivityEventUserUnbanned, actor, id, nil)
	return nil
}

// Kick invalidates every session token issued before now. The account
// itself stays active and can log in again immediately.
func (s *AdminService) Kick(ctx context.Context, actor *Account, id uuid.UUID) error {
	if err := s.repo.Kick(ctx, id); err != nil {
		return err
	}
	s.record(ctx, ActivityEventUserKicked, actor, id, nil)
	return nil
}

func (s *AdminService) Unkick(ctx context.Context, actor *Account, id uuid.UUID) error {
	if err := s.repo.Unkick(ctx, id); err != nil {
		return err
	}
	s.record(ctx, ActivityEventUserUnkicked, actor, id, nil)
	return nil
}

// SetRoles replaces the account's role set. Session tokens keep their
// role snapshot until the next refresh.
func (s *AdminService) SetRoles(ctx context.Context, actor *Account, id uuid.UUID, roles []string) error {
	if err := s.repo.Users().ApplyUpdate(ctx, id, UserUpdate{Roles: roles}); err != nil {
		return err
	}
	s.record(ctx, ActivityEventRolesChanged, actor, id, map[string]any{"roles": roles})
	return nil
}

// ActivateMassLogout invalidates every session token issued before now,
// across all accounts.
func (s *AdminService) ActivateMassLogout(ctx context.Context, actor *Account) error {
	if err := s.repo.ActivateMassLogout(ctx); err != nil {
		return err
	}
	s.record(ctx, ActivityEventMassLogoutOn, actor, uuid.Nil, nil)
	return nil
}

func (s *AdminService) DeactivateMassLogout(ctx context.Context, actor *Account) error {
	if err := s.repo.DeactivateMassLogout(ctx); err != nil {
		return err
	}
	s.record(ctx, ActivityEventMassLogoutOff, actor, uuid.Nil, nil)
	return nil
}

func (s *AdminService) GetMassLogoutStatus(ctx context.Context) (MassLogoutStatus, error) {
	ts, err := s.repo.MassLogoutTS(ctx)
	if err != nil {
		return MassLogoutStatus{}, err
	}
	if ts == nil {
		return MassLogoutStatus{Active: false}, nil
	}
	return MassLogoutStatus{Active: true, Date: ts}, nil
}

func (s *AdminService) record(ctx context.Context, eventType ActivityEventType, actor *Account, subject uuid.UUID, metadata map[string]any) {
	ref := ActorRef{Type: "system"}
	if actor != nil {
		ref = ActorRef{ID: actor.ID.String(), Type: "admin"}
	}

	userID := ""
	if subject != uuid.Nil {
		userID = subject.String()
	}

	event := ActivityEvent{
		EventType:  eventType,
		Actor:      ref,
		UserID:     userID,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if err := s.activity.Record(ctx, event); err != nil {
		s.logger.Error("activity sink record failed", "event", string(eventType), "error", err)
	}
}
