package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/config"
	"github.com/Czechuuuu/szbi/internal/models"
)

func newAuth(t *testing.T) (*AuthService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	cfg := config.Config{JWTSecret: "test-secret"}
	return NewAuthService(db, cfg, NewActivityService(db, 50)), db
}

func TestAuthService_Login(t *testing.T) {
	service, db := newAuth(t)
	seedUser(t, db, "test@example.com")

	// Successful login, email is case-insensitive
	token, user, err := service.Login("Test@Example.com", "password123", Actor{IPAddress: "198.51.100.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	require.NotNil(t, user.LastLogin)

	// Invalid password
	_, _, err = service.Login("test@example.com", "wrongpassword", Actor{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown user
	_, _, err = service.Login("nobody@example.com", "password123", Actor{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	var logins []models.ActivityLog
	require.NoError(t, db.Where("action = ?", models.ActionLogin).Find(&logins).Error)
	require.Len(t, logins, 1)
	assert.Equal(t, "198.51.100.1", logins[0].IPAddress)
	require.NotNil(t, logins[0].UserID)
	assert.Equal(t, user.ID, *logins[0].UserID)
}

func TestAuthService_LockoutAfterFailedAttempts(t *testing.T) {
	service, db := newAuth(t)
	seedUser(t, db, "lock@example.com")

	for i := 0; i < maxFailedLogins; i++ {
		_, _, err := service.Login("lock@example.com", "bad", Actor{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	}

	// Correct password is still refused while locked
	_, _, err := service.Login("lock@example.com", "password123", Actor{})
	assert.ErrorIs(t, err, ErrAccountLocked)

	var u models.User
	require.NoError(t, db.Where("email = ?", "lock@example.com").First(&u).Error)
	require.NotNil(t, u.LockedUntil)
	assert.True(t, u.LockedUntil.After(time.Now().Add(lockoutDuration-time.Minute)))

	require.NoError(t, service.ResetPassword("lock@example.com", "newpassword1"))
	_, _, err = service.Login("lock@example.com", "newpassword1", Actor{})
	assert.NoError(t, err)
}

func TestAuthService_InactiveAccount(t *testing.T) {
	service, db := newAuth(t)
	u := seedUser(t, db, "gone@example.com")
	require.NoError(t, db.Model(u).Update("is_active", false).Error)

	_, _, err := service.Login("gone@example.com", "password123", Actor{})
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	service, db := newAuth(t)
	u := seedUser(t, db, "jwt@example.com")

	token, err := service.GenerateToken(u)
	require.NoError(t, err)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
	assert.Equal(t, "jwt@example.com", claims.Email)
	assert.Equal(t, u.UUID, claims.Subject)

	_, err = service.ValidateToken(token + "x")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewAuthService(db, config.Config{JWTSecret: "another-secret"}, NewActivityService(db, 50))
	_, err = other.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestAuthService_ChangePassword(t *testing.T) {
	service, db := newAuth(t)
	u := seedUser(t, db, "change@example.com")
	a := actorFor(t, db, u)

	err := service.ChangePassword(a, "wrong", "newpassword1")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "old_password")

	err = service.ChangePassword(a, "password123", "short")
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "new_password")

	require.NoError(t, service.ChangePassword(a, "password123", "newpassword1"))
	_, _, err = service.Login("change@example.com", "newpassword1", Actor{})
	assert.NoError(t, err)

	assert.ErrorIs(t, service.ChangePassword(SystemActor(), "a", "b"), ErrPermissionDenied)
}

func TestAuthService_CreateSuperuser(t *testing.T) {
	service, _ := newAuth(t)

	u, err := service.CreateSuperuser("Root@Example.com", "password123", "Root")
	require.NoError(t, err)
	assert.True(t, u.IsSuperuser)
	assert.True(t, u.IsStaff)
	assert.Equal(t, "root@example.com", u.Email)

	_, err = service.CreateSuperuser("root@example.com", "password123", "Root")
	assert.ErrorIs(t, err, ErrDuplicate)

	assert.ErrorIs(t, service.ResetPassword("missing@example.com", "password123"), ErrUserNotFound)
}

func TestAuthService_Logout(t *testing.T) {
	service, db := newAuth(t)
	a := actorFor(t, db, seedUser(t, db, "bye@example.com"))

	service.Logout(a)
	service.Logout(SystemActor())
	assert.EqualValues(t, 1, countActivity(t, db, models.ActionLogout, models.ActivityAuth))
}
