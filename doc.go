// Package auth is an identity and session engine: JWT issuance with
// typed token kinds, cache-backed revocation (ban, kick, mass logout),
// a generic rate limiter, and account flows for registration, login,
// password and email management.
//
// Token model:
//   - Session tokens (access/refresh) snapshot username and roles at
//     issuance. Action tokens (reset-password, verify-email,
//     change-email, oauth link/unlink) are single use: redeeming one
//     writes a marker so a replay fails even inside its lifetime.
//   - Authorizer combines token validity with live revocation state.
//     A valid token still fails when its user was banned or kicked, or
//     when a mass logout postdates its issuance.
//
// Collaborators:
//   - The engine stores users through bun and runtime state through a
//     CacheClient (the redis implementation lives under cache/).
//     Password hashing, captcha, email delivery and OAuth providers
//     are narrow interfaces so every flow is testable in isolation.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the Service
//     and AdminService to describe login, account and moderation
//     events. Sinks run best-effort (errors are logged) so you can
//     forward to a database or queue without blocking authentication.
//
// Social login lives in the social subpackage.
package auth
