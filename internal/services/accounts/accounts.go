// Package accounts registers users and turns credentials into session tokens.
package accounts

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/papertrade/internal/auth"
	"github.com/vadiminshakov/papertrade/internal/domain"
	"github.com/vadiminshakov/papertrade/internal/storage"
	"github.com/vadiminshakov/papertrade/pkg/id"
	"go.uber.org/zap"
)

const (
	TokenType = "bearer"

	minUsernameLen = 3
	maxUsernameLen = 80
	maxEmailLen    = 120
)

// ErrInvalidCredentials is returned by Login for an unknown login or a wrong password.
var ErrInvalidCredentials = errors.Wrap(domain.ErrUnauthenticated, "invalid credentials")

// Session is the result of a successful register or login.
type Session struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *domain.User `json:"user"`
}

// Registration holds the fields of a sign-up request.
type Registration struct {
	Username string
	Email    string
	Password string
}

// Service manages user accounts.
type Service struct {
	store          storage.Store
	issuer         *auth.TokenIssuer
	initialBalance decimal.Decimal
	now            func() time.Time
	logger         *zap.Logger
}

// NewService creates an account service. New users start with initialBalance.
func NewService(store storage.Store, issuer *auth.TokenIssuer, initialBalance decimal.Decimal, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:          store,
		issuer:         issuer,
		initialBalance: initialBalance,
		now:            time.Now,
		logger:         logger,
	}
}

// Register creates a user and signs them in.
// A taken username or email yields an error wrapping domain.ErrConflict.
func (s *Service) Register(ctx context.Context, r Registration) (*Session, error) {
	username := strings.TrimSpace(r.Username)
	email := strings.ToLower(strings.TrimSpace(r.Email))
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(r.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	userID, err := id.NewAt(now)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           userID,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		PaperBalance: s.initialBalance,
		CreatedAt:    now,
	}

	err = s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.CreateUser(ctx, user)
	})
	if err != nil {
		return nil, errors.Wrap(err, "register user")
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))

	return s.session(user)
}

// Login accepts a username or an email and records the login time.
func (s *Service) Login(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, errors.Wrap(domain.ErrValidation, "login and password are required")
	}

	var user *domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		u, err := tx.UserByLogin(ctx, login)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return ErrInvalidCredentials
			}
			return err
		}
		if !auth.VerifyPassword(password, u.PasswordHash) {
			return ErrInvalidCredentials
		}

		at := s.now().UTC()
		if err := tx.TouchLastLogin(ctx, u.ID, at); err != nil {
			return err
		}
		u.LastLogin = &at
		user = u
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			s.logger.Debug("login rejected", zap.String("login", login))
			return nil, err
		}
		return nil, errors.Wrap(err, "login")
	}

	return s.session(user)
}

// Me returns the profile of userID.
func (s *Service) Me(ctx context.Context, userID string) (*domain.User, error) {
	var user *domain.User
	err := s.store.WithTx(ctx, func(ctx context.Context, tx storage.Tx) error {
		var err error
		user, err = tx.UserByID(ctx, userID)
		return err
	})
	if err != nil {
		return nil, errors.Wrap(err, "load profile")
	}
	return user, nil
}

// Authenticate returns the user id carried by a bearer token.
func (s *Service) Authenticate(token string) (string, error) {
	return s.issuer.Validate(token)
}

func (s *Service) session(user *domain.User) (*Session, error) {
	token, expiresAt, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "issue token")
	}
	return &Session{
		AccessToken: token,
		TokenType:   TokenType,
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

func validateUsername(username string) error {
	if username == "" {
		return errors.Wrap(domain.ErrValidation, "username is required")
	}
	if n := len([]rune(username)); n < minUsernameLen || n > maxUsernameLen {
		return errors.Wrapf(domain.ErrValidation, "username must be %d to %d characters", minUsernameLen, maxUsernameLen)
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return errors.Wrap(domain.ErrValidation, "username may contain only letters, digits, '_', '-' and '.'")
		}
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.Wrap(domain.ErrValidation, "email is required")
	}
	if len(email) > maxEmailLen {
		return errors.Wrapf(domain.ErrValidation, "email must be at most %d characters", maxEmailLen)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.Wrapf(domain.ErrValidation, "invalid email %q", email)
	}
	return nil
}
