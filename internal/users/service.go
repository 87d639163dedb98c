package users

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/liftandlevel/internal/progression"
	"github.com/2beens/liftandlevel/internal/telemetry/metrics"
	"github.com/2beens/liftandlevel/internal/telemetry/tracing"
	"github.com/2beens/liftandlevel/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=users_test

var ErrValidation = errors.New("validation failed")

type usersRepo interface {
	Create(ctx context.Context, nu NewUser, start progression.Progression) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id int) (*User, error)
}

type sessionService interface {
	Login(ctx context.Context, userID int, createdAt time.Time) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Authenticated is a user profile together with a fresh session token.
type Authenticated struct {
	*User
	Token string `json:"token"`
}

type Service struct {
	repo           usersRepo
	sessions       sessionService
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewService(repo usersRepo, sessions sessionService, metricsManager *metrics.Manager) *Service {
	return &Service{
		repo:           repo,
		sessions:       sessions,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: invalid email", ErrValidation)
	}
	return email, nil
}

func (s *Service) Register(ctx context.Context, reg Registration) (_ *Authenticated, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.register")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	name := strings.TrimSpace(reg.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if reg.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return nil, err
	}

	hash, err := pkg.HashPassword(reg.Password)
	if errors.Is(err, pkg.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: password must be at most %d bytes", ErrValidation, pkg.MaxPasswordBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, NewUser{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}, progression.Starting())
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	span.SetAttributes(attribute.Int("user.id", user.ID))

	token, err := s.sessions.Login(ctx, user.ID, s.now())
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}

	if s.metricsManager != nil {
		s.metricsManager.CounterRegistrations.Inc()
	}
	log.Infof("new user registered: %d", user.ID)

	return &Authenticated{User: user, Token: token}, nil
}

func (s *Service) Login(ctx context.Context, creds Credentials) (_ *Authenticated, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.login")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if creds.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrValidation)
	}
	email, err := normalizeEmail(creds.Email)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.countLogin("unknown_user")
		return nil, fmt.Errorf("get user: %w", err)
	}

	if !pkg.CheckPasswordHash(creds.Password, user.PasswordHash) {
		s.countLogin("wrong_password")
		return nil, ErrWrongPassword
	}

	token, err := s.sessions.Login(ctx, user.ID, s.now())
	if err != nil {
		s.countLogin("error")
		return nil, fmt.Errorf("open session: %w", err)
	}
	s.countLogin("ok")

	return &Authenticated{User: user, Token: token}, nil
}

func (s *Service) countLogin(result string) {
	if s.metricsManager == nil {
		return
	}
	s.metricsManager.CounterLogins.WithLabelValues(result).Inc()
}

func (s *Service) Logout(ctx context.Context, token string) (bool, error) {
	return s.sessions.Logout(ctx, token)
}

func (s *Service) Profile(ctx context.Context, userID int) (_ *User, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.users.profile")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return s.repo.GetByID(ctx, userID)
}
