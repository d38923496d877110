// AngelaMos | 2026
// jwt_test.go

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/templates/roomcraft/internal/core"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestJWTManager(t)

	issued, err := m.CreateAccessToken(AccessTokenClaims{
		UserID:       "user-1",
		IsStaff:      true,
		TokenVersion: 3,
	})
	require.NoError(t, err)

	claims, err := m.VerifyAccessToken(context.Background(), issued.Token)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.True(t, claims.IsStaff)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, issued.TokenID, claims.TokenID)
	assert.WithinDuration(t, issued.ExpiresAt, claims.ExpiresAt, time.Second)
}

func TestVerifyAccessTokenRejectsForeignKey(t *testing.T) {
	issuer := newTestJWTManager(t)
	other := newTestJWTManager(t)

	issued, err := issuer.CreateAccessToken(AccessTokenClaims{UserID: "user-1"})
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(context.Background(), issued.Token)
	assert.ErrorIs(t, err, core.ErrTokenInvalid)

	_, err = issuer.VerifyAccessToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, core.ErrTokenInvalid)
}

func TestJWKSHandlerPublishesSigningKey(t *testing.T) {
	m := newTestJWTManager(t)

	rec := httptest.NewRecorder()
	m.GetJWKSHandler()(rec, httptest.NewRequest(http.MethodGet, "/.well-known/jwks.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Keys []map[string]any `json:"keys"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Keys, 1)
	assert.Equal(t, m.GetKeyID(), body.Keys[0]["kid"])
	assert.Equal(t, "EC", body.Keys[0]["kty"])
	assert.Nil(t, body.Keys[0]["d"])
}

func TestCreateRefreshTokenKeepsFamily(t *testing.T) {
	m := newTestJWTManager(t)

	fresh, err := m.CreateRefreshToken("")
	require.NoError(t, err)
	assert.NotEmpty(t, fresh.FamilyID)
	assert.Equal(t, core.HashToken(fresh.Token), fresh.Hash)

	rotated, err := m.CreateRefreshToken(fresh.FamilyID)
	require.NoError(t, err)
	assert.Equal(t, fresh.FamilyID, rotated.FamilyID)
	assert.NotEqual(t, fresh.Token, rotated.Token)
}
