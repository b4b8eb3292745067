package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/maillot-backend/internal/users"
	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/logger"
	"github.com/angelmondragon/maillot-backend/pkg/security"
	"gorm.io/gorm"
)

// RegisterRequest contains the payload required to open a shopper account.
type RegisterRequest struct {
	FirstName string  `json:"first_name" validate:"required,max=150"`
	LastName  string  `json:"last_name" validate:"required,max=150"`
	Email     string  `json:"email" validate:"required,email"`
	Password  string  `json:"password" validate:"required,min=8,max=128"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

// RegisterService creates accounts and signs the new user in.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest, cartSession string) (*LoginResponse, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	TxRunner       db.TxRunner
	PasswordConfig config.PasswordConfig
	JWTConfig      config.JWTConfig
	Carts          cartMerger
	Logger         *logger.Logger
}

type registerService struct {
	tx          db.TxRunner
	passwordCfg config.PasswordConfig
	jwtCfg      config.JWTConfig
	carts       cartMerger
	logg        *logger.Logger
	now         func() time.Time
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Carts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart merger required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &registerService{
		tx:          params.TxRunner,
		passwordCfg: params.PasswordConfig,
		jwtCfg:      params.JWTConfig,
		carts:       params.Carts,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest, cartSession string) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if strings.TrimSpace(req.FirstName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first_name is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		created, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			FirstName:    req.FirstName,
			LastName:     req.LastName,
			Phone:        req.Phone,
			Role:         enums.UserRoleCustomer,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		user = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	resp, err := issueToken(s.jwtCfg, s.now().UTC(), user)
	if err != nil {
		return nil, err
	}
	mergeCart(ctx, s.logg, s.carts, cartSession, user.ID)
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "auth.user_registered")
	return resp, nil
}
