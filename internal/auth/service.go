package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/maillot-backend/internal/users"
	pkgAuth "github.com/angelmondragon/maillot-backend/pkg/auth"
	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	bearerTokenType           = "Bearer"
)

// Service defines the behavior needed by the auth controller.
type Service interface {
	Login(ctx context.Context, req LoginRequest, cartSession string) (*LoginResponse, error)
}

type service struct {
	users  userRepository
	carts  cartMerger
	jwtCfg config.JWTConfig
	logg   *logger.Logger
	now    func() time.Time
}

type userRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// cartMerger folds an anonymous session cart into the user's cart.
type cartMerger interface {
	MergeSessionCart(ctx context.Context, sessionToken string, userID uuid.UUID) error
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo  userRepository
	Carts     cartMerger
	JWTConfig config.JWTConfig
	Logger    *logger.Logger
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart merger is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		users:  params.UserRepo,
		carts:  params.Carts,
		jwtCfg: params.JWTConfig,
		logg:   params.Logger,
		now:    time.Now,
	}, nil
}

func (s *service) Login(ctx context.Context, req LoginRequest, cartSession string) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now, err := s.recordLogin(ctx, user)
	if err != nil {
		return nil, err
	}

	resp, err := issueToken(s.jwtCfg, now, user)
	if err != nil {
		return nil, err
	}
	mergeCart(ctx, s.logg, s.carts, cartSession, user.ID)
	return resp, nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	input := strings.TrimSpace(email)
	if input == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(input))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid || !user.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	return user, nil
}

func (s *service) recordLogin(ctx context.Context, user *models.User) (time.Time, error) {
	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return time.Time{}, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update last login")
	}
	user.LastLoginAt = &now
	return now, nil
}

func issueToken(cfg config.JWTConfig, now time.Time, user *models.User) (*LoginResponse, error) {
	accessToken, err := pkgAuth.MintAccessToken(cfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	return &LoginResponse{
		AccessToken: accessToken,
		TokenType:   bearerTokenType,
		ExpiresAt:   now.Add(cfg.TTL()),
		User:        users.FromModel(user),
	}, nil
}

// mergeCart is best effort: a failed merge never fails the login.
func mergeCart(ctx context.Context, logg *logger.Logger, carts cartMerger, sessionToken string, userID uuid.UUID) {
	token := strings.TrimSpace(sessionToken)
	if token == "" {
		return
	}
	if err := carts.MergeSessionCart(ctx, token, userID); err != nil {
		logg.Error(logg.WithUserID(ctx, userID.String()), "auth.cart_merge_failed", err)
	}
}
