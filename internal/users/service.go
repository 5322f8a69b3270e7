package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/paymint-app/paymint-backend/internal/accounts"
	pkgAuth "github.com/paymint-app/paymint-backend/pkg/auth"
	"github.com/paymint-app/paymint-backend/pkg/config"
	"github.com/paymint-app/paymint-backend/pkg/db"
	"github.com/paymint-app/paymint-backend/pkg/db/models"
	pkgerrors "github.com/paymint-app/paymint-backend/pkg/errors"
	"github.com/paymint-app/paymint-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

// Service defines the behavior needed by the auth and users controllers.
type Service interface {
	Signup(ctx context.Context, input SignupInput) (*AuthResult, error)
	Login(ctx context.Context, input LoginInput) (*AuthResult, error)
	Get(ctx context.Context, id uuid.UUID) (*UserDTO, error)
	List(ctx context.Context, nameFilter string, excludeID uuid.UUID) ([]UserDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     Repository
	accounts accounts.Service
	runner   txRunner
	jwtCfg   config.JWTConfig
	pwCfg    config.PasswordConfig
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	Repo           Repository
	Accounts       accounts.Service
	Runner         txRunner
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
}

// NewService constructs a users service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.Accounts == nil {
		return nil, fmt.Errorf("accounts service is required")
	}
	if params.Runner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	return &service{
		repo:     params.Repo,
		accounts: params.Accounts,
		runner:   params.Runner,
		jwtCfg:   params.JWTConfig,
		pwCfg:    params.PasswordConfig,
	}, nil
}

// Signup registers a user and provisions their zero-balance account in one
// transaction, then returns a session token so the client can proceed directly.
func (s *service) Signup(ctx context.Context, input SignupInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if name == "" || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name and email are required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	hash, err := security.HashPassword(input.Password, s.pwCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
	}
	txErr := s.runner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		_, err := s.accounts.CreateForUser(ctx, tx, user.ID)
		return err
	})
	if txErr != nil {
		if db.IsUniqueViolation(txErr, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, txErr, "email already registered")
		}
		return nil, txErr
	}

	return s.issueToken(user)
}

func (s *service) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	return s.issueToken(user)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	dto := FromModel(user)
	return &dto, nil
}

func (s *service) List(ctx context.Context, nameFilter string, excludeID uuid.UUID) ([]UserDTO, error) {
	found, err := s.repo.List(ctx, strings.TrimSpace(nameFilter), excludeID)
	if err != nil {
		return nil, err
	}
	out := make([]UserDTO, 0, len(found))
	for i := range found {
		out = append(out, FromModel(&found[i]))
	}
	return out, nil
}

func (s *service) issueToken(user *models.User) (*AuthResult, error) {
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &AuthResult{
		AccessToken: token,
		User:        FromModel(user),
	}, nil
}
