//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/nkoval/backoffice/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var emailCounter int64

// uniqueEmail yields a fresh address so tests don't collide on the unique
// constraint.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, atomic.AddInt64(&emailCounter, 1))
}

func TestRegister_ReturnsTokenAndUser(t *testing.T) {
	client := newTestClient(t)
	email := uniqueEmail("register")

	resp, err := client.POST("/api/v1/auth/register", map[string]string{
		"name":     "Fresh User",
		"email":    email,
		"password": "secret",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		AccessToken string `json:"access_token"`
		User        struct {
			ID    int64  `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	testutil.DecodeJSON(t, resp, &result)

	assert.NotEmpty(t, result.AccessToken)
	assert.Equal(t, email, result.User.Email)
	assert.NotZero(t, result.User.ID)

	body := testutil.ReadBody(t, mustGET(t, client, "/api/v1/auth/profile", http.StatusUnauthorized))
	assert.Contains(t, body, "error", "profile without token is rejected: %s", body)

	client.Token = result.AccessToken
	profileResp := mustGET(t, client, "/api/v1/auth/profile", http.StatusOK)
	var profile struct {
		Email string `json:"email"`
	}
	testutil.DecodeJSON(t, profileResp, &profile)
	assert.Equal(t, email, profile.Email)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	client := newTestClient(t)
	email := uniqueEmail("dup")

	client.RegisterAndLogin(t, "First", email, "secret")

	resp, err := client.POST("/api/v1/auth/register", map[string]string{
		"name":     "Second",
		"email":    email,
		"password": "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestRegister_RejectsInvalidBody(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.POST("/api/v1/auth/register", map[string]string{
		"name":     "No Email",
		"password": "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestLoginFlow_Succeeds(t *testing.T) {
	client := newTestClient(t)
	email := uniqueEmail("login")
	client.RegisterAndLogin(t, "Login User", email, "secret")
	client.ClearToken()

	client.LoginAs(t, email, "secret")
	require.NotEmpty(t, client.Token)

	resp := mustGET(t, client, "/api/v1/auth/profile", http.StatusOK)
	var profile struct {
		Email string `json:"email"`
	}
	testutil.DecodeJSON(t, resp, &profile)
	assert.Equal(t, email, profile.Email)
}

func TestLogin_TicketIsSingleUse(t *testing.T) {
	client := newTestClient(t)
	email := uniqueEmail("single-use")
	client.RegisterAndLogin(t, "Ticket User", email, "secret")
	client.ClearToken()

	ticket := client.InitSession(t)
	auth := testutil.BasicAuth(email, "secret")

	resp := postLogin(t, client, ticket, auth)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = postLogin(t, client, ticket, auth)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "reused ticket must be rejected")
	_ = resp.Body.Close()
}

func TestLogin_TicketConsumedOnFailedCredentials(t *testing.T) {
	client := newTestClient(t)
	email := uniqueEmail("consumed")
	client.RegisterAndLogin(t, "Ticket User", email, "secret")
	client.ClearToken()

	ticket := client.InitSession(t)

	resp := postLogin(t, client, ticket, testutil.BasicAuth(email, "wrong-password"))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	// The failed attempt burned the ticket; correct credentials can no
	// longer redeem it.
	resp = postLogin(t, client, ticket, testutil.BasicAuth(email, "secret"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestLogin_UnknownTicket(t *testing.T) {
	client := newTestClient(t)
	email := uniqueEmail("unknown-ticket")
	client.RegisterAndLogin(t, "Ticket User", email, "secret")
	client.ClearToken()

	resp := postLogin(t, client, "4dbz-not-issued", testutil.BasicAuth(email, "secret"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()

	resp = postLogin(t, client, "", testutil.BasicAuth(email, "secret"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestLogin_BadCredentialsShareOneError(t *testing.T) {
	client := newTestClient(t)
	email := uniqueEmail("enumeration")
	client.RegisterAndLogin(t, "Real User", email, "secret")
	client.ClearToken()

	wrongPass := postLogin(t, client, client.InitSession(t), testutil.BasicAuth(email, "wrong"))
	require.Equal(t, http.StatusUnauthorized, wrongPass.StatusCode)
	wrongPassBody := testutil.ReadBody(t, wrongPass)

	unknownUser := postLogin(t, client, client.InitSession(t), testutil.BasicAuth(uniqueEmail("ghost"), "secret"))
	require.Equal(t, http.StatusUnauthorized, unknownUser.StatusCode)
	unknownUserBody := testutil.ReadBody(t, unknownUser)

	assert.Equal(t, wrongPassBody, unknownUserBody,
		"wrong password and unknown email must be indistinguishable")
}

func TestLoginBasic_Succeeds(t *testing.T) {
	client := newTestClient(t)
	email := uniqueEmail("basic")
	client.RegisterAndLogin(t, "Basic User", email, "secret")
	client.ClearToken()

	resp, err := client.POST("/api/v1/auth/login-basic", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "missing header is a client error")
	_ = resp.Body.Close()

	resp = postLoginBasic(t, client, testutil.BasicAuth(email, "secret"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		AccessToken string `json:"access_token"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.AccessToken)

	// The token works exactly like one from the ticket path.
	client.Token = result.AccessToken
	profile := mustGET(t, client, "/api/v1/auth/profile", http.StatusOK)
	_ = profile.Body.Close()
}

func TestLoginBasic_WrongPassword(t *testing.T) {
	client := newTestClient(t)
	email := uniqueEmail("basic-wrong")
	client.RegisterAndLogin(t, "Basic User", email, "secret")
	client.ClearToken()

	resp := postLoginBasic(t, client, testutil.BasicAuth(email, "nope"))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestUsersDirectory_RequiresAuth(t *testing.T) {
	client := newTestClient(t)

	resp := mustGET(t, client, "/api/v1/auth/users", http.StatusUnauthorized)
	_ = resp.Body.Close()

	email := uniqueEmail("directory")
	client.RegisterAndLogin(t, "Directory User", email, "secret")

	resp = mustGET(t, client, "/api/v1/auth/users", http.StatusOK)
	var list []struct {
		Email string `json:"email"`
	}
	testutil.DecodeJSON(t, resp, &list)

	found := false
	for _, u := range list {
		if u.Email == email {
			found = true
		}
	}
	assert.True(t, found, "directory should contain the new user")
}

func postLogin(t *testing.T, client *testutil.Client, ticket, authHeader string) *http.Response {
	t.Helper()
	resp, err := client.Do("POST", "/api/v1/auth/login",
		map[string]string{"uuid": ticket},
		map[string]string{"Authorization": authHeader})
	require.NoError(t, err)
	return resp
}

func postLoginBasic(t *testing.T, client *testutil.Client, authHeader string) *http.Response {
	t.Helper()
	resp, err := client.Do("POST", "/api/v1/auth/login-basic", nil,
		map[string]string{"Authorization": authHeader})
	require.NoError(t, err)
	return resp
}

func mustGET(t *testing.T, client *testutil.Client, path string, wantStatus int) *http.Response {
	t.Helper()
	resp, err := client.GET(path)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "GET %s", path)
	return resp
}
