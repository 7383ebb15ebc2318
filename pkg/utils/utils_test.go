package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"club-space-backend/pkg/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteErrorResponse_Body(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteErrorResponseWithCode(rec, http.StatusConflict, "ALREADY_MEMBER", "already a member", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "already a member", body["error"])
	assert.Equal(t, "ALREADY_MEMBER", body["code"])
	_, hasDetails := body["details"]
	assert.False(t, hasDetails)
}

func TestValidateStruct(t *testing.T) {
	type req struct {
		Name      string   `json:"name" validate:"required,max=10"`
		MemberIDs []string `json:"member_ids" validate:"required,dive,required"`
		Date      string   `json:"date" validate:"required,datetime=2006-01-02"`
	}
	errs := ValidateStruct(&req{Name: "this name is too long", MemberIDs: []string{"a", ""}, Date: "2025/01/01"})
	assert.Contains(t, errs, "name")
	assert.Contains(t, errs, "member_ids[1]")
	assert.Contains(t, errs, "date")

	assert.Nil(t, ValidateStruct(&req{Name: "ok", MemberIDs: []string{"a"}, Date: "2025-01-01"}))
}

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret")
	access, refresh, exp, err := svc.GenerateTokenPair("user-1", "a@example.com")
	require.NoError(t, err)
	assert.Greater(t, exp, time.Now().Unix())

	session, err := svc.ValidateAccessToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", session.UserID)
	assert.Equal(t, "a@example.com", session.Email)

	_, err = svc.ValidateAccessToken(refresh)
	assert.Error(t, err)

	newAccess, _, err := svc.RefreshAccessToken(refresh)
	require.NoError(t, err)
	_, err = svc.ValidateAccessToken(newAccess)
	assert.NoError(t, err)

	_, _, err = svc.RefreshAccessToken(access)
	assert.Error(t, err)
}

func TestJWT_AcceptsHostedAuthToken(t *testing.T) {
	claims := &models.TokenClaims{Subject: "u-42", Email: "h@example.com", Role: "authenticated",
		Exp: time.Now().Add(time.Hour).Unix(), Iat: time.Now().Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	session, err := NewJWTService("secret").ValidateAccessToken(signed)
	require.NoError(t, err)
	assert.Equal(t, "u-42", session.UserID)

	_, err = NewJWTService("other").ValidateAccessToken(signed)
	assert.Error(t, err)
}

func TestJWT_Expired(t *testing.T) {
	claims := &models.TokenClaims{Subject: "u", Exp: time.Now().Add(-time.Minute).Unix(), Iat: time.Now().Add(-time.Hour).Unix()}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = NewJWTService("secret").ValidateAccessToken(signed)
	assert.Error(t, err)
}

func TestOAuthState(t *testing.T) {
	state, err := SignState("secret", time.Minute)
	require.NoError(t, err)
	assert.NoError(t, VerifyState("secret", state))
	assert.Error(t, VerifyState("other", state))
	assert.Error(t, VerifyState("secret", state+"x"))

	expired, err := SignState("secret", -time.Minute)
	require.NoError(t, err)
	assert.Error(t, VerifyState("secret", expired))
}
