package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpm2/maintenance-api/pkg/database"
	"github.com/dpm2/maintenance-api/pkg/models"
)

func TestPasswordHash(t *testing.T) {
	hash, err := HashPassword("tooltime")
	require.NoError(t, err)
	assert.True(t, CheckPasswordHash("tooltime", hash))
	assert.False(t, CheckPasswordHash("secureme", hash))
}

func TestGeneratePassword(t *testing.T) {
	p, err := GeneratePassword(10)
	require.NoError(t, err)
	assert.Len(t, p, 10)
	assert.Regexp(t, "^[A-Za-z0-9]+$", p)

	short, err := GeneratePassword(2)
	require.NoError(t, err)
	assert.Len(t, short, 8)
}

func TestToken_RoundTrip(t *testing.T) {
	a := New("secret", "master")
	tok, err := a.CreateToken(&database.User{ID: 3, Email: "m@example.com", Role: models.RoleManager})
	require.NoError(t, err)

	claims, err := a.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(3), claims.UserID)
	assert.Equal(t, models.RoleManager, claims.Role)

	_, err = New("other", "master").VerifyToken(tok)
	assert.Error(t, err)
}

func TestToken_Expired(t *testing.T) {
	a := New("secret", "master")
	claims := &Claims{
		UserID:           1,
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = a.VerifyToken(tok)
	assert.Error(t, err)
}

func TestHMACKey(t *testing.T) {
	a := New("secret", "master")
	key := a.GenerateHMACKey("tenant.portal")

	name, err := a.VerifyHMACKey(key)
	require.NoError(t, err)
	assert.Equal(t, "tenant.portal", name)

	_, err = New("secret", "other").VerifyHMACKey(key)
	assert.Error(t, err)
	_, err = a.VerifyHMACKey("nodot")
	assert.Error(t, err)
	_, err = a.VerifyHMACKey("trailing.")
	assert.Error(t, err)
}

func TestLoginAndEnsureAdmin(t *testing.T) {
	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "auth.db")})
	require.NoError(t, err)
	store := database.NewStore(db)
	ctx := context.Background()

	created, err := EnsureAdminExists(ctx, store, "Admin@Example.com", "admin123")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = EnsureAdminExists(ctx, store, "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.False(t, created)

	a := New("secret", "master")
	user, tok, err := a.Login(ctx, store, " admin@example.com ", "admin123")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, user.Role)
	assert.NotEmpty(t, tok)

	_, _, err = a.Login(ctx, store, "admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = a.Login(ctx, store, "ghost@example.com", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
