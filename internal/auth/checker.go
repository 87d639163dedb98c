package auth

import "context"

var _ Checker = (*LoginChecker)(nil)

// Checker resolves a bearer token to the id of the logged in user.
type Checker interface {
	Authenticate(ctx context.Context, token string) (int, error)
}
