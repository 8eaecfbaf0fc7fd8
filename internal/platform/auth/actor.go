package auth

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const actorKey contextKey = "actor"

// Actor is the authenticated identity attached to every request: the user id
// from the token subject plus the single role the token carries. Profile
// resolution (user -> doctor/patient row) happens in the domain layer.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

// IsDoctor reports whether the actor holds the doctor role.
func (a Actor) IsDoctor() bool { return a.Role == RoleDoctor }

// IsPatient reports whether the actor holds the patient role.
func (a Actor) IsPatient() bool { return a.Role == RolePatient }

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// ContextWithActor returns a child context carrying the actor.
func ContextWithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// ActorFromContext retrieves the actor stored by the auth middleware. The
// second return is false if no actor was attached.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
