package auth

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity is the authenticated caller bound to a request.
type Identity struct {
	UserID primitive.ObjectID
	Role   string
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
