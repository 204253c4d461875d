package access

import "context"

type sessionContextKey struct{}

// ContextWithSession attaches the authenticated session to the context.
func ContextWithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, &s)
}

// SessionFromContext extracts the authenticated session from the context.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	v, ok := ctx.Value(sessionContextKey{}).(*Session)
	if !ok || v == nil {
		return Session{}, false
	}
	return *v, true
}

// Require returns ErrNoSession or ErrForbidden unless the context session may
// open section.
func Require(ctx context.Context, section Permission) (Session, error) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return Session{}, ErrNoSession
	}
	if !IsAuthorized(s, section) {
		return Session{}, ErrForbidden
	}
	return s, nil
}
