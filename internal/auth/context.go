package auth

import "context"

type userIDCtxKey struct{}

// ContextWithUserID stores the authenticated user (the token subject) in ctx.
func ContextWithUserID(ctx context.Context, userID int) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

func UserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(userIDCtxKey{}).(int)
	return userID, ok
}
