//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/2beens/liftandlevel/internal/client"
	"github.com/2beens/liftandlevel/internal/workout"
)

func (s *IntegrationTestSuite) TestSessionToHistory() {
	ctx := context.Background()
	c, _ := s.registerUser(ctx)

	clock := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	session := workout.NewSession(workout.WithClock(func() time.Time { return clock }))
	s.Require().NoError(session.Start())
	_, err := session.AddSet("Bench Press", 3, 10, 100)
	s.Require().NoError(err)
	_, err = session.AddSet("Squat", 5, 5, 100)
	s.Require().NoError(err)
	_, err = session.AddSet("Push Up", 3, 12, 0)
	s.Require().NoError(err)
	clock = clock.Add(45 * time.Minute)

	sub, err := session.Finish()
	s.Require().NoError(err)

	result, err := c.SubmitWorkout(ctx, sub)
	s.Require().NoError(err)
	s.Equal(int64(560), result.XPDelta)
	s.Equal(int64(560), result.UserXP)
	s.Equal(3, result.Level)
	s.Equal("Rookie", result.Rank)
	s.Equal("2026-03-01", result.Date)
	s.Equal(45*60, result.Duration)
	s.Equal(sub.PreviewXP(), result.XP)

	s.Equal(int64(560), c.Session().XP)
	s.Equal(3, c.Session().Level)

	later := workout.Submission{
		Date:     "2026-03-03",
		Duration: 600,
		Items:    []workout.LoggedSet{{Name: "Deadlift", Sets: 1, Reps: 5, Weight: 180}},
	}
	earlier := workout.Submission{
		Date:     "2026-02-20",
		Duration: 300,
		Items:    []workout.LoggedSet{{Name: "Plank", Sets: 1, Reps: 1}},
	}
	_, err = c.SubmitWorkout(ctx, later)
	s.Require().NoError(err)
	_, err = c.SubmitWorkout(ctx, earlier)
	s.Require().NoError(err)

	history, err := c.History(ctx)
	s.Require().NoError(err)
	s.Require().Len(history, 3)
	s.Equal([]string{"2026-03-03", "2026-03-01", "2026-02-20"}, []string{history[0].Date, history[1].Date, history[2].Date})

	first := history[1]
	s.Require().Len(first.Items, 3)
	s.Equal("Bench Press", first.Items[0].Name)
	s.Equal("Squat", first.Items[1].Name)
	s.Equal("Push Up", first.Items[2].Name)
	s.Equal(int64(10), first.Items[2].XP)
	s.Equal(int64(560+90+10), c.Session().XP)
}

func (s *IntegrationTestSuite) TestClientXPIsIgnored() {
	ctx := context.Background()
	c, _ := s.registerUser(ctx)

	body := []byte(`{"date":"2026-03-01","duration":60,"items":[{"name":"Squat","sets":5,"reps":5,"weight":100,"xp":999999}]}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/users/%d/workouts", serverEndpoint, c.Session().UserID), bytes.NewReader(body))
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+c.Session().Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusCreated, resp.StatusCode)

	history, err := c.History(ctx)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(int64(250), history[0].XP)
}

func (s *IntegrationTestSuite) TestInvalidSubmissionWritesNothing() {
	ctx := context.Background()
	c, _ := s.registerUser(ctx)

	_, err := c.SubmitWorkout(ctx, workout.Submission{
		Date:  "2026-03-01",
		Items: []workout.LoggedSet{{Name: "Squat", Sets: 5, Reps: 5}, {Name: "", Sets: 1, Reps: 1}},
	})
	var apiErr *client.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusBadRequest, apiErr.Status)

	_, err = c.SubmitWorkout(ctx, workout.Submission{Date: "yesterday", Items: []workout.LoggedSet{{Name: "Squat", Sets: 1, Reps: 1}}})
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusBadRequest, apiErr.Status)

	history, err := c.History(ctx)
	s.Require().NoError(err)
	s.Empty(history)
	s.Equal(int64(0), c.Session().XP)
}

func (s *IntegrationTestSuite) TestOtherUsersWorkoutsAreForbidden() {
	ctx := context.Background()
	alice, _ := s.registerUser(ctx)
	bob, _ := s.registerUser(ctx)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req, err := http.NewRequestWithContext(ctx, method,
			fmt.Sprintf("%s/users/%d/workouts", serverEndpoint, bob.Session().UserID),
			bytes.NewReader([]byte(`{"date":"2026-03-01","duration":1,"items":[{"name":"Squat","sets":1,"reps":1}]}`)))
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+alice.Session().Token)

		resp, err := s.httpClient.Do(req)
		s.Require().NoError(err)
		resp.Body.Close()
		s.Equal(http.StatusForbidden, resp.StatusCode, method)
	}

	history, err := bob.History(ctx)
	s.Require().NoError(err)
	s.Empty(history)
}

func (s *IntegrationTestSuite) TestConcurrentSubmissionsKeepEveryXP() {
	ctx := context.Background()
	owner, email := s.registerUser(ctx)

	const devices = 8
	clients := make([]*client.Client, devices)
	for i := range clients {
		clients[i] = s.newClient()
		_, err := clients[i].Login(ctx, email, testPassword)
		s.Require().NoError(err)
	}

	sub := workout.Submission{
		Date:     "2026-03-01",
		Duration: 60,
		Items:    []workout.LoggedSet{{Name: "Bench Press", Sets: 3, Reps: 10, Weight: 100}},
	}

	var wg sync.WaitGroup
	errs := make([]error, devices)
	for i, c := range clients {
		wg.Add(1)
		go func(i int, c *client.Client) {
			defer wg.Done()
			_, errs[i] = c.SubmitWorkout(ctx, sub)
		}(i, c)
	}
	wg.Wait()

	for _, err := range errs {
		s.Require().NoError(err)
	}

	history, err := owner.History(ctx)
	s.Require().NoError(err)
	s.Len(history, devices)

	_, err = owner.Login(ctx, email, testPassword)
	s.Require().NoError(err)
	s.Equal(int64(devices*300), owner.Session().XP)
}
