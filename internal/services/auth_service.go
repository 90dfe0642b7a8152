package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Czechuuuu/szbi/internal/config"
	"github.com/Czechuuuu/szbi/internal/logger"
	"github.com/Czechuuuu/szbi/internal/models"
	"github.com/Czechuuuu/szbi/internal/util"
)

const (
	maxFailedLogins = 5
	lockoutDuration = 15 * time.Minute
	tokenTTL        = 24 * time.Hour
)

type Claims struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type AuthService struct {
	db       *gorm.DB
	config   config.Config
	activity *ActivityService
}

func NewAuthService(db *gorm.DB, cfg config.Config, activity *ActivityService) *AuthService {
	return &AuthService{db: db, config: cfg, activity: activity}
}

// Login checks the credentials and returns a signed token. client carries the
// request metadata recorded with the login.
func (s *AuthService) Login(email, password string, client Actor) (string, *models.User, error) {
	var user models.User
	if err := s.db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error; err != nil {
		return "", nil, ErrInvalidCredentials
	}

	now := time.Now()
	if user.IsLocked(now) {
		return "", nil, ErrAccountLocked
	}
	if !user.IsActive {
		return "", nil, ErrAccountInactive
	}

	if !user.CheckPassword(password) {
		user.FailedLoginAttempts++
		if user.FailedLoginAttempts >= maxFailedLogins {
			until := now.Add(lockoutDuration)
			user.LockedUntil = &until
		}
		if err := s.db.Save(&user).Error; err != nil {
			return "", nil, err
		}
		logger.WithFields(logrus.Fields{
			"email":    util.SanitizeForLog(user.Email),
			"attempts": user.FailedLoginAttempts,
			"ip":       client.IPAddress,
		}).Warn("failed login attempt")
		return "", nil, ErrInvalidCredentials
	}

	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now
	if err := s.db.Save(&user).Error; err != nil {
		return "", nil, err
	}

	token, err := s.GenerateToken(&user)
	if err != nil {
		return "", nil, err
	}

	client.User = &user
	s.activity.Record(client, ActivityEntry{
		Action: models.ActionLogin, Category: models.ActivityAuth,
		ObjectType: "user", ObjectID: user.ID, ObjectRepr: user.String(),
		Description: fmt.Sprintf("Zalogowano: %s", user.Email),
	})
	return token, &user, nil
}

// Logout records the end of a session. Tokens are stateless, so nothing is
// revoked server-side.
func (s *AuthService) Logout(actor Actor) {
	if actor.User == nil {
		return
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionLogout, Category: models.ActivityAuth,
		ObjectType: "user", ObjectID: actor.User.ID, ObjectRepr: actor.User.String(),
		Description: fmt.Sprintf("Wylogowano: %s", actor.User.Email),
	})
}

func (s *AuthService) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.UUID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			Issuer:    "szbi",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *AuthService) GetUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	return &user, nil
}

func (s *AuthService) ChangePassword(actor Actor, oldPassword, newPassword string) error {
	if actor.User == nil {
		return ErrPermissionDenied
	}
	user, err := s.GetUserByID(actor.User.ID)
	if err != nil {
		return err
	}
	if !user.CheckPassword(oldPassword) {
		return fieldError("old_password", "Nieprawidłowe obecne hasło.")
	}
	if len(newPassword) < 8 {
		return fieldError("new_password", "Hasło musi mieć co najmniej 8 znaków.")
	}
	if err := user.SetPassword(newPassword); err != nil {
		return err
	}
	if err := s.db.Save(user).Error; err != nil {
		return err
	}
	s.activity.Record(actor, ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityAuth,
		ObjectType: "user", ObjectID: user.ID, ObjectRepr: user.String(),
		Description: "Zmieniono hasło",
	})
	return nil
}

// CreateSuperuser creates an account that passes every permission check.
func (s *AuthService) CreateSuperuser(email, password, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fieldError("email", "To pole jest wymagane.")
	}
	if len(password) < 8 {
		return nil, fieldError("password", "Hasło musi mieć co najmniej 8 znaków.")
	}
	user := &models.User{Email: email, Name: name, IsActive: true, IsStaff: true, IsSuperuser: true}
	if err := user.SetPassword(password); err != nil {
		return nil, err
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, translate(err, ErrUserNotFound)
	}
	s.activity.Record(SystemActor(), ActivityEntry{
		Action: models.ActionCreate, Category: models.ActivityAuth,
		ObjectType: "user", ObjectID: user.ID, ObjectRepr: user.String(),
		Description: fmt.Sprintf("Utworzono superużytkownika: %s", user.Email),
	})
	return user, nil
}

// ResetPassword sets a new password and clears any lock-out.
func (s *AuthService) ResetPassword(email, password string) error {
	if len(password) < 8 {
		return fieldError("password", "Hasło musi mieć co najmniej 8 znaków.")
	}
	var user models.User
	err := s.db.Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	if err := user.SetPassword(password); err != nil {
		return err
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	if err := s.db.Save(&user).Error; err != nil {
		return err
	}
	s.activity.Record(SystemActor(), ActivityEntry{
		Action: models.ActionUpdate, Category: models.ActivityAuth,
		ObjectType: "user", ObjectID: user.ID, ObjectRepr: user.String(),
		Description: fmt.Sprintf("Zresetowano hasło: %s", user.Email),
	})
	return nil
}
