//go:build integration_test || all_tests

package test

import (
	"context"
	"time"

	"github.com/2beens/liftandlevel/internal/catalog"
)

func (s *IntegrationTestSuite) TestCatalogSearch() {
	ctx := context.Background()
	c := s.newClient()

	exercises, err := c.Search(ctx, "press")
	s.Require().NoError(err)
	names := make([]string, 0, len(exercises))
	for _, e := range exercises {
		names = append(names, e.Name)
	}
	s.Equal([]string{"Bench Press", "Incline Bench Press", "Leg Press", "Overhead Press"}, names)

	// second call is served from cache, same answer
	again, err := c.Search(ctx, "  PRESS ")
	s.Require().NoError(err)
	s.Equal(exercises, again)

	none, err := c.Search(ctx, "%")
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *IntegrationTestSuite) TestCatalogLookupDebounces() {
	lookup := catalog.NewLookup(s.newClient(), catalog.WithQuietPeriod(50*time.Millisecond))
	defer lookup.Close()

	for _, q := range []string{"d", "de", "dea", "dead"} {
		lookup.Query(q)
	}

	select {
	case res := <-lookup.Results():
		s.Require().NoError(res.Err)
		s.Equal("dead", res.Query)
		s.Require().Len(res.Exercises, 2)
		s.Equal("Deadlift", res.Exercises[0].Name)
		s.Equal("Romanian Deadlift", res.Exercises[1].Name)
	case <-time.After(5 * time.Second):
		s.Fail("no lookup result")
	}
}
