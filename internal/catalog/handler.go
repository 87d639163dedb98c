package catalog

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/liftandlevel/internal/telemetry/tracing"
	"github.com/2beens/liftandlevel/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=catalog_test

type catalogService interface {
	Search(ctx context.Context, q string) ([]Exercise, error)
}

type Handler struct {
	service catalogService
}

func NewHandler(service catalogService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/exercises", handler.HandleSearch).Methods("GET", "OPTIONS").Name("search-exercises")
}

func (handler *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.catalog.search")
	defer span.End()

	exercises, err := handler.service.Search(ctx, r.URL.Query().Get("q"))
	if err != nil {
		log.Errorf("search exercises: %s", err)
		pkg.WriteJSONError(w, http.StatusInternalServerError, "server error", "")
		return
	}
	if exercises == nil {
		exercises = []Exercise{}
	}

	pkg.WriteJSON(w, exercises, http.StatusOK)
}
