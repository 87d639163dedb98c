//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/2beens/liftandlevel/internal/client"
	"github.com/2beens/liftandlevel/internal/users"
)

func (s *IntegrationTestSuite) TestRegisterAndLogin() {
	ctx := context.Background()

	c := s.newClient()
	email := gofakeit.UUID() + "@lift.test"
	registered, err := c.Register(ctx, "Ana Lifter", "  "+strings.ToUpper(email)+" ", testPassword)
	s.Require().NoError(err)
	s.Positive(registered.UserID)
	s.Equal(int64(0), registered.XP)
	s.Equal(1, registered.Level)
	s.Equal("Stickman", registered.Rank)
	s.NotEmpty(registered.Token)

	other := s.newClient()
	loggedIn, err := other.Login(ctx, email, testPassword)
	s.Require().NoError(err)
	s.Equal(registered.UserID, loggedIn.UserID)
	s.NotEqual(registered.Token, loggedIn.Token)

	_, err = s.newClient().Register(ctx, "Copycat", email, testPassword)
	s.True(client.HasCode(err, "USER_EXISTS"), "got %v", err)
}

func (s *IntegrationTestSuite) TestLoginFailures() {
	ctx := context.Background()
	_, email := s.registerUser(ctx)

	_, err := s.newClient().Login(ctx, email, "not-the-password")
	s.True(client.HasCode(err, "INVALID_CREDENTIALS"), "got %v", err)

	_, err = s.newClient().Login(ctx, "nobody-"+email, testPassword)
	s.True(client.HasCode(err, "USER_NOT_FOUND"), "got %v", err)

	_, err = s.newClient().Login(ctx, "not an email", testPassword)
	var apiErr *client.APIError
	s.Require().ErrorAs(err, &apiErr)
	s.Equal(http.StatusBadRequest, apiErr.Status)
}

func (s *IntegrationTestSuite) TestLogoutRevokesToken() {
	ctx := context.Background()
	c, _ := s.registerUser(ctx)
	token := c.Session().Token
	userID := c.Session().UserID

	_, err := c.History(ctx)
	s.Require().NoError(err)

	s.Require().NoError(c.Logout(ctx))
	s.Nil(c.Session())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%d/workouts", serverEndpoint, userID), nil)
	s.Require().NoError(err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestProfileIsOwnerOnly() {
	ctx := context.Background()
	alice, _ := s.registerUser(ctx)
	bob, _ := s.registerUser(ctx)

	get := func(token string, userID int) *http.Response {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%d", serverEndpoint, userID), nil)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := s.httpClient.Do(req)
		s.Require().NoError(err)
		return resp
	}

	resp := get(alice.Session().Token, alice.Session().UserID)
	s.Equal(http.StatusOK, resp.StatusCode)
	var profile users.User
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&profile))
	resp.Body.Close()
	s.Equal(alice.Session().UserID, profile.ID)
	s.Empty(profile.PasswordHash)

	resp = get(alice.Session().Token, bob.Session().UserID)
	resp.Body.Close()
	s.Equal(http.StatusForbidden, resp.StatusCode)
}
