package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"example.com/liftsync/internal/domain"
)

func TestListTemplatesDecodesAndScopesByUser(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.RequestURI()
		gotAuth = r.Header.Get("Authorization")
		json.NewEncoder(w).Encode([]domain.Template{
			{ID: "tpl-1", Name: "Push Day", WorkoutTypeID: "strength"},
		})
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	client.SetSession(testToken(t, jwt.MapClaims{"sub": "user-1"}))

	templates, err := client.ListTemplates(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, templates, 1)
	require.Equal(t, "Push Day", templates[0].Name)
	require.Equal(t, "/rest/v1/templates?user_id=user-1", gotPath)
	require.Contains(t, gotAuth, "Bearer ")
}

func TestInsertSessionReturnsCanonicalRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var in domain.Session
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		in.ID = "canonical-1"
		json.NewEncoder(w).Encode(in)
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	stored, err := client.InsertSession(context.Background(), domain.Session{ID: "provisional", TemplateName: "Push Day"})
	require.NoError(t, err)
	require.Equal(t, "canonical-1", stored.ID)
	require.Equal(t, "Push Day", stored.TemplateName)
}

func TestErrorMapping(t *testing.T) {
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	}))
	defer srv.Close()
	client := New(srv.URL, time.Second)

	status = http.StatusNotFound
	err := client.DeleteTemplate(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	status = http.StatusUnauthorized
	err = client.DeleteTemplate(context.Background(), "tpl-1")
	require.ErrorIs(t, err, domain.ErrAuthRequired)

	status = http.StatusInternalServerError
	err = client.DeleteTemplate(context.Background(), "tpl-1")
	require.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}

func TestTimeoutMapsToRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	client := New(srv.URL, 20*time.Millisecond)
	err := client.Ping(context.Background())
	require.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}

func TestUnreachableHostMapsToRemoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	client := New(srv.URL, time.Second)
	err := client.Ping(context.Background())
	require.ErrorIs(t, err, domain.ErrRemoteUnavailable)
}

func TestAuthEventOrdering(t *testing.T) {
	client := New("http://localhost:0", time.Second)

	var events []AuthEvent
	unsubscribe := client.OnAuthStateChange(func(event AuthEvent, _ *domain.AuthUser) {
		events = append(events, event)
	})

	client.SetSession(testToken(t, jwt.MapClaims{"sub": "user-1"}))
	client.SetSession(testToken(t, jwt.MapClaims{"sub": "user-1"}))
	client.ClearSession()
	client.ClearSession() // already signed out, no event

	require.Equal(t, []AuthEvent{AuthSignedIn, AuthTokenRefreshed, AuthSignedOut}, events)

	unsubscribe()
	client.SetSession(testToken(t, jwt.MapClaims{"sub": "user-1"}))
	require.Len(t, events, 3)
}

func TestAuthSessionDecodesClaims(t *testing.T) {
	client := New("http://localhost:0", time.Second)
	issued := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	client.SetSession(testToken(t, jwt.MapClaims{
		"sub":   "user-1",
		"email": "lifter@example.com",
		"iat":   issued.Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
		"user_metadata": map[string]any{
			"display_name": "Lifter",
		},
	}))

	user, err := client.AuthSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, "lifter@example.com", user.Email)
	require.Equal(t, "Lifter", user.Metadata["display_name"])
	require.Equal(t, issued, user.CreatedAt)
}

func TestAuthSessionExpiredTokenIsSignedOut(t *testing.T) {
	client := New("http://localhost:0", time.Second)
	client.SetSession(testToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Hour).Unix(),
	}))

	user, err := client.AuthSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestAuthSessionNoToken(t *testing.T) {
	client := New("http://localhost:0", time.Second)
	user, err := client.AuthSession(context.Background())
	require.NoError(t, err)
	require.Nil(t, user)
}

func testToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}
