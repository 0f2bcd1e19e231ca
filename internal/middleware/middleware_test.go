package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmerhub/marketplace-api/internal/auth"
	"github.com/farmerhub/marketplace-api/internal/metrics"
	"github.com/farmerhub/marketplace-api/internal/models"
)

func identityEcho(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	json.NewEncoder(w).Encode(map[string]any{"ok": ok, "id": id.SubjectID, "role": id.Role})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthenticate(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	userToken, err := tokens.Issue(1, models.RoleUser)
	require.NoError(t, err)
	adminToken, err := tokens.Issue(2, models.RoleAdmin)
	require.NoError(t, err)

	handler := Authenticate(tokens, "token", models.RoleAdmin)(http.HandlerFunc(identityEcho))

	tests := []struct {
		name       string
		token      string
		wantStatus int
		wantKind   string
	}{
		{"no token", "", http.StatusUnauthorized, "authentication_error"},
		{"bad token", "nope", http.StatusUnauthorized, "authentication_error"},
		{"wrong role", userToken, http.StatusForbidden, "authorization_error"},
		{"admin", adminToken, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.token != "" {
				r.AddCookie(&http.Cookie{Name: "token", Value: tt.token})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			if tt.wantKind != "" {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.wantKind, body["error"])
				return
			}
			assert.Equal(t, true, body["ok"])
			assert.Equal(t, float64(2), body["id"])
		})
	}
}

func TestAuthenticateWithoutRolesAdmitsAnyRole(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	sellerToken, err := tokens.Issue(5, models.RoleSeller)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+sellerToken)
	rec := httptest.NewRecorder()
	Authenticate(tokens, "token")(http.HandlerFunc(identityEcho)).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "seller", decodeBody(t, rec)["role"])
}

func TestRecoverReturnsJSON(t *testing.T) {
	handler := ErrorHandlerMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "server_error", decodeBody(t, rec)["error"])
}

func TestRequestIDAndCORS(t *testing.T) {
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware, CORSMiddleware("*"), MetricsMiddleware(metrics.NewDiscardMetrics("test")))
	router.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(RequestIDFrom(r.Context())))
	}).Methods(http.MethodGet)

	r := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, rec.Header().Get("X-Request-ID"), rec.Body.String())
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
