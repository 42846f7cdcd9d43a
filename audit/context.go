package audit

import "context"

type contextKey string

const actorContextKey contextKey = "audit_actor"

// WithActor returns a child context carrying the authenticated user id.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, actorContextKey, userID)
}

// ActorFromContext returns the authenticated user id, if any.
func ActorFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorContextKey).(int64)
	return id, ok && id > 0
}

// Viewer is the optional reader of a resource. The zero value is anonymous.
type Viewer struct {
	ID            int64
	Authenticated bool
}

// ViewerFromContext builds a Viewer from the request context.
func ViewerFromContext(ctx context.Context) Viewer {
	id, ok := ActorFromContext(ctx)
	return Viewer{ID: id, Authenticated: ok}
}

// Owns reports whether the viewer is the given owner.
func (v Viewer) Owns(ownerID int64) bool {
	return v.Authenticated && v.ID == ownerID
}
