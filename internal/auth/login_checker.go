package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

type LoginChecker struct {
	ttl         time.Duration
	secret      []byte
	redisClient *redis.Client
}

func NewLoginChecker(ttl time.Duration, secret string, redisClient *redis.Client) *LoginChecker {
	return &LoginChecker{
		ttl:         ttl,
		secret:      []byte(secret),
		redisClient: redisClient,
	}
}

// Authenticate verifies the token signature and that its session is still open, returning the token subject.
func (lc *LoginChecker) Authenticate(ctx context.Context, token string) (int, error) {
	claims, err := parseToken(lc.secret, token)
	if err != nil {
		return 0, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return 0, err
	}

	cmd := lc.redisClient.Get(ctx, sessionKeyPrefix+claims.ID)
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			return 0, ErrSessionNotFound
		}
		return 0, fmt.Errorf("get session: %w", err)
	}

	createdAtUnix, err := strconv.ParseInt(cmd.Val(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse session: %w", err)
	}
	// logged out sessions are kept with created at 0 until cleaned
	if createdAtUnix <= 0 {
		return 0, ErrSessionNotFound
	}

	if time.Since(time.Unix(createdAtUnix, 0)) > lc.ttl {
		return 0, ErrSessionExpired
	}

	return userID, nil
}
