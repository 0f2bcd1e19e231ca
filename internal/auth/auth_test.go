package auth

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmerhub/marketplace-api/internal/models"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, CheckPassword(hash, "s3cret!"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokens("secret", 7*24*time.Hour)

	token, err := tokens.Issue(12, models.RoleSeller)
	require.NoError(t, err)

	id, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, Identity{SubjectID: 12, Role: models.RoleSeller}, id)
}

func TestTokenRejections(t *testing.T) {
	tokens := NewTokens("secret", time.Hour)
	token, err := tokens.Issue(1, models.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name   string
		tokens *Tokens
		token  string
	}{
		{"garbage", tokens, "not-a-jwt"},
		{"empty", tokens, ""},
		{"wrong secret", NewTokens("other", time.Hour), token},
		{"expired", &Tokens{secret: []byte("secret"), ttl: time.Hour, now: func() time.Time { return time.Now().Add(2 * time.Hour) }}, token},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.tokens.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestFromRequestPrefersBearer(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
	assert.Equal(t, "from-cookie", FromRequest(r, "token"))

	r.Header.Set("Authorization", "Bearer from-header")
	assert.Equal(t, "from-header", FromRequest(r, "token"))

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", FromRequest(r, "token"))
}

func TestGeneratedSecrets(t *testing.T) {
	code, err := NewVerificationCode()
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)

	tok, err := NewResetToken()
	require.NoError(t, err)
	assert.Len(t, tok, 64)

	other, err := NewResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}
