package workout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/liftandlevel/internal/auth"
	"github.com/2beens/liftandlevel/internal/telemetry/tracing"
	"github.com/2beens/liftandlevel/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=workout_test

type workoutService interface {
	Submit(ctx context.Context, nw NewWorkout) (*SubmitResult, error)
	History(ctx context.Context, userID int) ([]Workout, error)
}

type Handler struct {
	service workoutService
}

func NewHandler(service workoutService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/users/{userId}/workouts", handler.HandleAdd).Methods("POST", "OPTIONS").Name("new-workout")
	r.HandleFunc("/users/{userId}/workouts", handler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
}

// authorizedUserID returns the path user id if it matches the token subject, writing the error response otherwise.
func authorizedUserID(w http.ResponseWriter, r *http.Request) (int, bool) {
	userID, err := strconv.Atoi(mux.Vars(r)["userId"])
	if err != nil || userID <= 0 {
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid user id", "")
		return 0, false
	}

	subject, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, http.StatusUnauthorized, "missing token", "")
		return 0, false
	}
	if subject != userID {
		log.Warnf("user %d tried to access workouts of user %d", subject, userID)
		pkg.WriteJSONError(w, http.StatusForbidden, "forbidden", "")
		return 0, false
	}

	return userID, true
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.add")
	defer span.End()

	userID, ok := authorizedUserID(w, r)
	if !ok {
		return
	}

	var nw NewWorkout
	if err := json.NewDecoder(r.Body).Decode(&nw); err != nil {
		log.Tracef("new workout, unmarshal json: %s", err)
		if errors.Is(err, ErrValidation) {
			pkg.WriteJSONError(w, http.StatusBadRequest, err.Error(), "")
			return
		}
		pkg.WriteJSONError(w, http.StatusBadRequest, "invalid workout json", "")
		return
	}
	nw.UserID = userID

	result, err := handler.service.Submit(ctx, nw)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			pkg.WriteJSONError(w, http.StatusBadRequest, err.Error(), "")
		case errors.Is(err, ErrUserNotFound):
			pkg.WriteJSONError(w, http.StatusNotFound, "user not found", "USER_NOT_FOUND")
		default:
			log.Errorf("failed to add workout for user %d: %s", userID, err)
			pkg.WriteJSONError(w, http.StatusInternalServerError, "server error", "")
		}
		return
	}

	pkg.WriteJSON(w, result, http.StatusCreated)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workout.list")
	defer span.End()

	userID, ok := authorizedUserID(w, r)
	if !ok {
		return
	}

	workouts, err := handler.service.History(ctx, userID)
	if err != nil {
		log.Errorf("failed to list workouts for user %d: %s", userID, err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "server error", "")
		return
	}
	if workouts == nil {
		workouts = []Workout{}
	}

	pkg.WriteJSON(w, workouts, http.StatusOK)
}
