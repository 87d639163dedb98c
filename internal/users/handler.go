package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/liftandlevel/internal/auth"
	"github.com/2beens/liftandlevel/internal/middleware"
	"github.com/2beens/liftandlevel/internal/telemetry/metrics"
	"github.com/2beens/liftandlevel/internal/telemetry/tracing"
	"github.com/2beens/liftandlevel/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=users_test

type userService interface {
	Register(ctx context.Context, reg Registration) (*Authenticated, error)
	Login(ctx context.Context, creds Credentials) (*Authenticated, error)
	Logout(ctx context.Context, token string) (bool, error)
	Profile(ctx context.Context, userID int) (*User, error)
}

type Handler struct {
	service userService
}

func NewHandler(service userService) *Handler {
	return &Handler{
		service: service,
	}
}

// SetupRoutes registers the auth endpoints behind a per-client rate limit, and the profile endpoint.
func (handler *Handler) SetupRoutes(
	r *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	allowedPerMin int,
	metricsManager *metrics.Manager,
) {
	authRouter := r.PathPrefix("/auth").Subrouter()
	if rateLimiter != nil {
		authRouter.Use(middleware.RateLimit(rateLimiter, "auth", allowedPerMin, metricsManager))
	}
	authRouter.HandleFunc("/register", handler.HandleRegister).Methods("POST", "OPTIONS").Name("register")
	authRouter.HandleFunc("/login", handler.HandleLogin).Methods("POST", "OPTIONS").Name("login")
	authRouter.HandleFunc("/logout", handler.HandleLogout).Methods("GET", "OPTIONS").Name("logout")

	r.HandleFunc("/users/{userId}", handler.HandleProfile).Methods("GET", "OPTIONS").Name("user-profile")
}

func (handler *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.register")
	defer span.End()

	var reg Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid registration json", "")
		return
	}

	authenticated, err := handler.service.Register(ctx, reg)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			pkg.WriteJSONError(w, http.StatusBadRequest, err.Error(), "")
		case errors.Is(err, ErrUserExists):
			pkg.WriteJSONError(w, http.StatusConflict, "user already exists", "USER_EXISTS")
		default:
			log.Errorf("register user: %s", err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "server error", "")
		}
		return
	}

	pkg.WriteJSON(w, authenticated, http.StatusCreated)
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.login")
	defer span.End()

	var creds Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid login json", "")
		return
	}

	authenticated, err := handler.service.Login(ctx, creds)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			pkg.WriteJSONError(w, http.StatusBadRequest, err.Error(), "")
		case errors.Is(err, ErrUserNotFound):
			pkg.WriteJSONError(w, http.StatusNotFound, "user not found", "USER_NOT_FOUND")
		case errors.Is(err, ErrWrongPassword):
			pkg.WriteJSONError(w, http.StatusUnauthorized, "invalid credentials", "INVALID_CREDENTIALS")
		default:
			log.Errorf("login: %s", err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "server error", "")
		}
		return
	}

	pkg.WriteJSON(w, authenticated, http.StatusOK)
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.logout")
	defer span.End()

	token := auth.BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "missing token", "")
		return
	}

	loggedOut, err := handler.service.Logout(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrSessionNotFound) {
			pkg.WriteJSONError(w, http.StatusUnauthorized, "invalid token", "")
			return
		}
		log.Errorf("logout: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "server error", "")
		return
	}

	pkg.WriteJSON(w, map[string]bool{"loggedOut": loggedOut}, http.StatusOK)
}

func (handler *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.profile")
	defer span.End()

	userID, err := strconv.Atoi(mux.Vars(r)["userId"])
	if err != nil || userID <= 0 {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid user id", "")
		return
	}
	subject, ok := auth.UserIDFromContext(ctx)
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "missing token", "")
		return
	}
	if subject != userID {
		pkg.WriteJSONError(w, http.StatusForbidden, "forbidden", "")
		return
	}

	user, err := handler.service.Profile(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			pkg.WriteJSONError(w, http.StatusNotFound, "user not found", "USER_NOT_FOUND")
			return
		}
		log.Errorf("get profile of user %d: %s", userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "server error", "")
		return
	}

	pkg.WriteJSON(w, user, http.StatusOK)
}
