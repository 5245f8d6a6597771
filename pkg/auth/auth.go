// Package auth handles users, passwords and session tokens.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"smartreceipts/models"
)

var (
	ErrUsernameRequired    = errors.New("username required")
	ErrPasswordTooShort    = errors.New("password too short (min 6)")
	ErrUserExists          = errors.New("user already exists")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")
)

const minPasswordLen = 6

// Service issues and checks credentials against the users table.
type Service struct {
	db         *gorm.DB
	secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	now        func() time.Time
}

// NewService returns a Service signing access tokens with secret.
func NewService(db *gorm.DB, secret string) *Service {
	return &Service{
		db:         db,
		secret:     []byte(secret),
		AccessTTL:  24 * time.Hour,
		RefreshTTL: 30 * 24 * time.Hour,
		now:        time.Now,
	}
}

// Tokens is what login and refresh hand back to the client.
type Tokens struct {
	AccessToken  string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

func validate(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameRequired
	}
	if len(password) < minPasswordLen {
		return "", ErrPasswordTooShort
	}
	return username, nil
}

// Register creates a user with the "user" role.
func (s *Service) Register(ctx context.Context, username, password string) (models.User, error) {
	return s.CreateUser(ctx, username, password, models.RoleUser)
}

// CreateUser creates a user with the named role, creating the role if needed.
func (s *Service) CreateUser(ctx context.Context, username, password, roleName string) (models.User, error) {
	username, err := validate(username, password)
	if err != nil {
		return models.User{}, err
	}
	db := s.db.WithContext(ctx)

	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return models.User{}, ErrUserExists
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, err
	}
	role := models.Role{Name: roleName}
	if err := db.Where("name = ?", roleName).FirstOrCreate(&role).Error; err != nil {
		return models.User{}, fmt.Errorf("ensure role %s: %w", roleName, err)
	}
	rid := role.ID
	user := models.User{Username: username, HashedPassword: hashed, RoleID: &rid, Role: role}
	if err := db.Omit("Role").Create(&user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, err
	}
	return user, nil
}

// SetPassword replaces the password of an existing user.
func (s *Service) SetPassword(ctx context.Context, username, password string) error {
	username, err := validate(username, password)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).
		Update("hashed_password", hashed)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Authenticate returns the user (with its role) when the password matches.
func (s *Service) Authenticate(ctx context.Context, username, password string) (models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Preload("Role").
		Where("username = ?", strings.TrimSpace(username)).
		First(&user).Error
	if err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(password)); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues an access and refresh token pair.
func (s *Service) Login(ctx context.Context, username, password string) (Tokens, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return Tokens{}, err
	}
	return s.issue(s.db.WithContext(ctx), user)
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked.
func (s *Service) Refresh(ctx context.Context, raw string) (Tokens, error) {
	var out Tokens
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rt models.RefreshToken
		if err := tx.Where("token_hash = ?", hashToken(raw)).First(&rt).Error; err != nil {
			return ErrInvalidRefreshToken
		}
		if !rt.Usable(s.now()) {
			return ErrInvalidRefreshToken
		}
		var user models.User
		if err := tx.Preload("Role").First(&user, rt.UserID).Error; err != nil {
			return ErrUserNotFound
		}
		if err := tx.Model(&rt).Update("revoked", true).Error; err != nil {
			return err
		}
		var err error
		out, err = s.issue(tx, user)
		return err
	})
	return out, err
}

// Revoke marks a refresh token unusable.
func (s *Service) Revoke(ctx context.Context, raw string) error {
	res := s.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token_hash = ?", hashToken(raw)).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidRefreshToken
	}
	return nil
}

// User loads a user and its role by id.
func (s *Service) User(ctx context.Context, id uint) (models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Role").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *Service) issue(db *gorm.DB, user models.User) (Tokens, error) {
	access, err := s.IssueAccessToken(user)
	if err != nil {
		return Tokens{}, err
	}
	raw, err := newRefreshToken()
	if err != nil {
		return Tokens{}, err
	}
	rt := models.RefreshToken{UserID: user.ID, TokenHash: hashToken(raw), ExpiresAt: s.now().Add(s.RefreshTTL)}
	if err := db.Create(&rt).Error; err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, RefreshToken: raw}, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

func isUniqueConstraintError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "duplicate key") || strings.Contains(s, "unique constraint")
}
