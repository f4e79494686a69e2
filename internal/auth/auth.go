package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"ops-console-backend/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// Service manages console users and their sessions.
type Service struct {
	db   *gorm.DB
	ttl  time.Duration
	log  *zap.Logger
	now  func() time.Time
	cost int
	v    *validator.Validate
}

// NewService creates a session service issuing sessions valid for ttl.
func NewService(db *gorm.DB, ttl time.Duration, log *zap.Logger) *Service {
	return &Service{
		db:   db,
		ttl:  ttl,
		log:  log,
		now:  time.Now,
		cost: bcrypt.DefaultCost,
		v:    validator.New(),
	}
}

type newUser struct {
	Email    string `validate:"required,email,max=255"`
	Password string `validate:"required,min=8,max=72"`
	Role     string `validate:"required,oneof=admin user"`
}

// CreateUser registers an account with a bcrypt-hashed password.
func (s *Service) CreateUser(ctx context.Context, email, password, role string) (*model.User, error) {
	if role == "" {
		role = model.RoleUser
	}
	in := newUser{Email: normalizeEmail(email), Password: password, Role: role}
	if err := s.v.Struct(in); err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{Email: in.Email, PasswordHash: string(hash), Role: in.Role}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", in.Email, err)
	}
	s.log.Info("user created", zap.String("email", user.Email), zap.String("role", user.Role))
	return user, nil
}

// SignIn checks the credentials and opens a new session.
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	session := &model.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		User:      user,
	}
	if err := s.db.WithContext(ctx).Omit("User").Create(session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("signed in", zap.Int64("user_id", user.ID))
	return session, nil
}

// Lookup resolves a session token. Expired sessions are deleted.
func (s *Service) Lookup(ctx context.Context, token string) (*model.Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	var session model.Session
	err := s.db.WithContext(ctx).Preload("User").Where("token = ?", token).Take(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.Expired(s.now()) {
		if err := s.db.WithContext(ctx).Delete(&model.Session{}, "token = ?", token).Error; err != nil {
			s.log.Warn("failed to delete expired session", zap.Error(err))
		}
		return nil, ErrSessionExpired
	}
	return &session, nil
}

// SignOut deletes the session. Unknown tokens are not an error.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Delete(&model.Session{}, "token = ?", token).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
