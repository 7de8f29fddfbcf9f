package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventRegister             ActivityEventType = "auth.register"
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventLogout               ActivityEventType = "auth.logout"
	ActivityEventTokenRefresh         ActivityEventType = "auth.token.refresh"
	ActivityEventSocialLogin          ActivityEventType = "auth.social.login"
	ActivityEventSocialLink           ActivityEventType = "auth.social.link"
	ActivityEventSocialUnlink         ActivityEventType = "auth.social.unlink"
	ActivityEventPasswordResetSuccess ActivityEventType = "auth.password.reset"
	ActivityEventPasswordChanged      ActivityEventType = "auth.password.changed"
	ActivityEventEmailVerified        ActivityEventType = "auth.email.verified"
	ActivityEventEmailChanged         ActivityEventType = "auth.email.changed"
	ActivityEventUsernameChanged      ActivityEventType = "auth.username.changed"
	ActivityEventUserBanned           ActivityEventType = "admin.user.banned"
	ActivityEventUserUnbanned         ActivityEventType = "admin.user.unbanned"
	ActivityEventUserKicked           ActivityEventType = "admin.user.kicked"
	ActivityEventUserUnkicked         ActivityEventType = "admin.user.unkicked"
	ActivityEventMassLogoutOn         ActivityEventType = "admin.mass_logout.on"
	ActivityEventMassLogoutOff        ActivityEventType = "admin.mass_logout.off"
	ActivityEventRolesChanged         ActivityEventType = "admin.user.roles.changed"
)

// ActorRef identifies who triggered an event. Type is one of "user",
// "admin", "system" or "unknown".
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
