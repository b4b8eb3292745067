package address

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service manages a user's shipping addresses. At most one is default.
type Service interface {
	List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error)
	Create(ctx context.Context, userID uuid.UUID, input Input) (*AddressDTO, error)
	Update(ctx context.Context, userID, id uuid.UUID, input Input) (*AddressDTO, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	SetDefault(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error)
}

type service struct {
	repo *Repository
	tx   db.TxRunner
}

// NewService builds the address service.
func NewService(repo *Repository, tx db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context, userID uuid.UUID) ([]AddressDTO, error) {
	rows, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
	}
	out := make([]AddressDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDTO(row))
	}
	return out, nil
}

func (s *service) Get(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error) {
	row, err := s.repo.FindForUser(ctx, userID, id)
	if err != nil {
		return nil, mapLoadErr(err)
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*AddressDTO, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	row := &models.Address{UserID: userID, IsDefault: input.IsDefault}
	input.apply(row)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		count, err := repo.CountForUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count addresses")
		}
		if count == 0 {
			row.IsDefault = true
		}
		if row.IsDefault {
			if err := repo.DemoteOthers(ctx, userID, uuid.Nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "demote default address")
			}
		}
		if err := repo.Create(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create address")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := toDTO(*row)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, userID, id uuid.UUID, input Input) (*AddressDTO, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	var dto AddressDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUser(ctx, userID, id)
		if err != nil {
			return mapLoadErr(err)
		}
		input.apply(row)
		if input.IsDefault && !row.IsDefault {
			if err := repo.DemoteOthers(ctx, userID, row.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "demote default address")
			}
			row.IsDefault = true
		}
		if err := repo.Save(ctx, row); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update address")
		}
		dto = toDTO(*row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

// Delete removes an address. Deleting the default promotes the newest remaining address.
func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUser(ctx, userID, id)
		if err != nil {
			return mapLoadErr(err)
		}
		if err := repo.Delete(ctx, userID, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete address")
		}
		if !row.IsDefault {
			return nil
		}
		rest, err := repo.ListForUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list addresses")
		}
		if len(rest) == 0 {
			return nil
		}
		if err := repo.SetDefault(ctx, rest[0].ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "promote default address")
		}
		return nil
	})
}

func (s *service) SetDefault(ctx context.Context, userID, id uuid.UUID) (*AddressDTO, error) {
	var dto AddressDTO
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindForUser(ctx, userID, id)
		if err != nil {
			return mapLoadErr(err)
		}
		if err := repo.DemoteOthers(ctx, userID, row.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "demote default address")
		}
		if err := repo.SetDefault(ctx, row.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set default address")
		}
		row.IsDefault = true
		dto = toDTO(*row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &dto, nil
}

func validate(input Input) error {
	missing := input.missing()
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return pkgerrors.New(pkgerrors.CodeValidation, "address is incomplete").
		WithDetails(map[string]any{"missing": missing})
}

func mapLoadErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load address")
}
