package catalog

import (
	"context"
	"encoding/json"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/liftandlevel/internal/telemetry/metrics"
	"github.com/2beens/liftandlevel/internal/telemetry/tracing"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=catalog_test

type exerciseRepo interface {
	Search(ctx context.Context, q string) ([]Exercise, error)
}

type Service struct {
	repo           exerciseRepo
	cache          *freecache.Cache
	cacheTTLSecs   int
	metricsManager *metrics.Manager
}

func NewService(repo exerciseRepo, cacheSizeMB, cacheTTLSecs int, metricsManager *metrics.Manager) *Service {
	megabyte := 1024 * 1024
	return &Service{
		repo:           repo,
		cache:          freecache.NewCache(cacheSizeMB * megabyte),
		cacheTTLSecs:   cacheTTLSecs,
		metricsManager: metricsManager,
	}
}

// Search looks q up in the exercise library, served from cache when possible.
// If the library is unavailable the built-in catalog is searched instead.
func (s *Service) Search(ctx context.Context, q string) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.catalog.search")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	q = NormalizeQuery(q)
	span.SetAttributes(attribute.String("catalog.query", q))
	cacheKey := []byte("search::" + q)

	if cached, err := s.cache.Get(cacheKey); err == nil {
		var exercises []Exercise
		if err := json.Unmarshal(cached, &exercises); err == nil {
			s.countLookup("hit")
			return exercises, nil
		}
		log.Warnf("catalog cache: corrupt entry for [%s], dropping", q)
		s.cache.Del(cacheKey)
	}

	exercises, err := s.repo.Search(ctx, q)
	if err != nil {
		log.Errorf("catalog search [%s] failed, serving built-in catalog: %s", q, err)
		s.countLookup("fallback")
		return Fallback(q), nil
	}
	s.countLookup("miss")

	if encoded, err := json.Marshal(exercises); err == nil {
		if err := s.cache.Set(cacheKey, encoded, s.cacheTTLSecs); err != nil {
			log.Warnf("catalog cache set [%s]: %s", q, err)
		}
	}

	return exercises, nil
}

func (s *Service) countLookup(cache string) {
	if s.metricsManager == nil {
		return
	}
	s.metricsManager.CounterCatalogLookups.WithLabelValues(cache).Inc()
}
