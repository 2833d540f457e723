package service

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tokens, err := f.auth.Login(ctx, LoginRequest{Username: "tnadmin", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.Equal(t, "tnadmin", tokens.User.Username)
	assert.Equal(t, "ADMIN", tokens.User.Role)

	// The access token carries subject and role claims.
	parsed, err := jwt.Parse(tokens.Token, func(tk *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, f.tnAdmin.ID.String(), claims["sub"])
	assert.Equal(t, "ADMIN", claims["role"])
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Login(ctx, LoginRequest{Username: "tnadmin", Password: "wrong"})
	require.Error(t, err)
	// Unknown user and wrong password read identically.
	_, err2 := f.auth.Login(ctx, LoginRequest{Username: "ghost", Password: "secret123"})
	require.Error(t, err2)
	assert.Equal(t, err.Error(), err2.Error())
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tokens, err := f.auth.Login(ctx, LoginRequest{Username: "tamilclient1", Password: "secret123"})
	require.NoError(t, err)

	fresh, err := f.auth.Refresh(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, tokens.RefreshToken, fresh.RefreshToken)

	// The consumed token cannot be replayed.
	_, err = f.auth.Refresh(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.Error(t, err)
}

func TestLogoutRevokesRefreshToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tokens, err := f.auth.Login(ctx, LoginRequest{Username: "tamilclient1", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(ctx, tokens.RefreshToken))
	_, err = f.auth.Refresh(ctx, RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.Error(t, err)
}
