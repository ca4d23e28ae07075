package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthService_LoginAndVerify(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewAuthService("test-secret", string(hash))

	token, err := svc.Login(context.Background(), "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
}

func TestAuthService_WrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	svc := NewAuthService("test-secret", string(hash))

	_, err = svc.Login(context.Background(), "battery staple")
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)
}

func TestAuthService_VerifyRejectsForeignToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	issuer := NewAuthService("secret-one", string(hash))
	verifier := NewAuthService("secret-two", string(hash))

	token, err := issuer.Login(context.Background(), "pw")
	require.NoError(t, err)

	_, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)

	_, err = verifier.VerifyToken("not.a.token")
	assert.ErrorIs(t, err, ErrAuthInvalidCredentials)
}
