package auth

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/liftandlevel/pkg"
)

const (
	DefaultTTL       = 24 * 7 * time.Hour
	sessionKeyPrefix = "liftandlevel-session||"
	tokensSetKey     = "liftandlevel-sessions"
	sessionIDLength  = 32
)

type Service struct {
	redisClient *redis.Client
	ttl         time.Duration
	secret      []byte
	// ability to inject random string generator func for session ids (for unit and dev testing)
	RandStringFunc func(s int) (string, error)
}

func NewAuthService(
	ttl time.Duration,
	secret string,
	redisClient *redis.Client,
) *Service {
	return &Service{
		ttl:            ttl,
		secret:         []byte(secret),
		redisClient:    redisClient,
		RandStringFunc: pkg.GenerateRandomString,
	}
}

// Login opens a session for the user and returns its signed token.
func (as *Service) Login(ctx context.Context, userID int, createdAt time.Time) (string, error) {
	sessionID, err := as.RandStringFunc(sessionIDLength)
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	token, err := signToken(as.secret, userID, sessionID, createdAt, as.ttl)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	sessionKey := sessionKeyPrefix + sessionID
	// the key expires together with the token
	cmdSet := as.redisClient.Set(ctx, sessionKey, createdAt.Unix(), as.ttl)
	if err := cmdSet.Err(); err != nil {
		return "", err
	}

	// add session to list of sessions
	cmdSAdd := as.redisClient.SAdd(ctx, tokensSetKey, sessionID)
	if err := cmdSAdd.Err(); err != nil {
		return "", err
	}

	return token, nil
}

// Logout revokes the session behind token. It reports whether the session was still open.
func (as *Service) Logout(ctx context.Context, token string) (bool, error) {
	claims, err := parseToken(as.secret, token)
	if err != nil {
		return false, err
	}

	sessionKey := sessionKeyPrefix + claims.ID
	cmd := as.redisClient.Get(ctx, sessionKey)
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			return false, ErrSessionNotFound
		}
		return false, err
	}

	createdAtUnix, err := strconv.ParseInt(cmd.Val(), 10, 64)
	if err != nil {
		return false, err
	}

	cmdSet := as.redisClient.Set(ctx, sessionKey, 0, redis.KeepTTL)
	if err := cmdSet.Err(); err != nil {
		return false, err
	}

	// remove session from the list of sessions
	cmdSRem := as.redisClient.SRem(ctx, tokensSetKey, claims.ID)
	if err := cmdSRem.Err(); err != nil {
		return false, err
	}

	return createdAtUnix > 0, nil
}

// ScanAndClean will run through all sessions, check the TTL, and clean them if old
func (as *Service) ScanAndClean(ctx context.Context) {
	cmd := as.redisClient.SMembers(ctx, tokensSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("auth service, scan and clean, get sessions: %s", err)
		return
	}

	sessionIDs := cmd.Val()
	if len(sessionIDs) == 0 {
		log.Debugln("auth service, scan and clean abort, no sessions")
		return
	}

	log.Infof("auth service, scan and clean [%d sessions] start ...", len(sessionIDs))
	var toRemove []string
	for _, sessionID := range sessionIDs {
		sessionKey := sessionKeyPrefix + sessionID
		cmd := as.redisClient.Get(ctx, sessionKey)
		if err := cmd.Err(); err != nil {
			if err == redis.Nil {
				toRemove = append(toRemove, sessionID)
				continue
			}
			log.Errorf("auth service, scan and clean session %s: %s", sessionID, err)
			continue
		}

		createdAtUnix, err := strconv.ParseInt(cmd.Val(), 10, 64)
		if err != nil {
			log.Errorf("auth service, scan and clean session %s: %s", sessionID, err)
			continue
		}

		if time.Since(time.Unix(createdAtUnix, 0)) > as.ttl {
			toRemove = append(toRemove, sessionID)
		}
	}

	for _, sessionID := range toRemove {
		sessionKey := sessionKeyPrefix + sessionID
		if err := as.redisClient.Del(ctx, sessionKey).Err(); err != nil {
			log.Errorf("auth service, clean session %s: %s", sessionID, err)
			continue
		}

		if err := as.redisClient.SRem(ctx, tokensSetKey, sessionID).Err(); err != nil {
			log.Errorf("auth service, clean session %s: %s", sessionID, err)
			continue
		}
	}
	log.Infof("auth service, scan and clean done, removed %d sessions", len(toRemove))
}
