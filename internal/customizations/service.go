package customizations

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// NameOptionName is the display name of the printed name and number option.
	NameOptionName = "Nom et Numéro"
	nameOptionDesc = "Nom et numéro personnalisés au dos du maillot"
)

// DefaultUnitPrice is charged per character for names and flat for badges.
var DefaultUnitPrice = decimal.NewFromInt(500)

// Service resolves purchasable customization options.
type Service interface {
	GetOrCreateName(ctx context.Context) (*models.CustomizationOption, error)
	GetOrCreateBadge(ctx context.Context, badge enums.BadgeType) (*models.CustomizationOption, error)
	Get(ctx context.Context, id uuid.UUID) (*models.CustomizationOption, error)
	List(ctx context.Context) ([]OptionDTO, error)
	WithTx(tx *gorm.DB) Service
}

type service struct {
	repo *Repository
}

// NewService builds the customization service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customizations repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) GetOrCreateName(ctx context.Context) (*models.CustomizationOption, error) {
	option, err := s.repo.GetOrCreate(ctx, models.CustomizationOption{
		Type:        enums.CustomizationTypeName,
		Name:        NameOptionName,
		Description: nameOptionDesc,
		Price:       DefaultUnitPrice,
		IsActive:    true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve name customization")
	}
	return option, nil
}

func (s *service) GetOrCreateBadge(ctx context.Context, badge enums.BadgeType) (*models.CustomizationOption, error) {
	if !badge.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid badge type %q", badge))
	}
	option, err := s.repo.GetOrCreate(ctx, models.CustomizationOption{
		Type:        enums.CustomizationTypeBadge,
		BadgeType:   badge,
		Name:        BadgeOptionName(badge),
		Description: "Badge officiel " + string(badge),
		Price:       DefaultUnitPrice,
		IsActive:    true,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve badge customization")
	}
	return option, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.CustomizationOption, error) {
	option, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customization option not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customization option")
	}
	if !option.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customization option not found")
	}
	return option, nil
}

func (s *service) List(ctx context.Context) ([]OptionDTO, error) {
	options, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list customization options")
	}
	out := make([]OptionDTO, 0, len(options))
	for i := range options {
		out = append(out, FromModel(&options[i]))
	}
	return out, nil
}

// BadgeOptionName is the display name of the option for badge.
func BadgeOptionName(badge enums.BadgeType) string {
	return "Badge " + badge.Title()
}
