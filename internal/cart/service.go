package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/maillot-backend/internal/catalog"
	"github.com/angelmondragon/maillot-backend/internal/customizations"
	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/maillot-backend/pkg/errors"
	"github.com/angelmondragon/maillot-backend/pkg/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service exposes cart operations for users and anonymous sessions.
type Service interface {
	Get(ctx context.Context, owner Owner) (*View, error)
	Add(ctx context.Context, owner Owner, input AddInput) (*LineView, error)
	Remove(ctx context.Context, owner Owner, productID uuid.UUID, size string) error
	UpdateQuantity(ctx context.Context, owner Owner, productID uuid.UUID, size string, quantity int) (*LineView, error)
	AttachCustomization(ctx context.Context, owner Owner, lineID uuid.UUID, input CustomizationInput) (*CustomizationView, error)
	DetachCustomization(ctx context.Context, owner Owner, customizationID uuid.UUID) error
	Total(ctx context.Context, owner Owner) (decimal.Decimal, error)
	Lines(ctx context.Context, owner Owner) ([]models.CartItem, error)
	Clear(ctx context.Context, owner Owner) error
	MergeSessionCart(ctx context.Context, sessionToken string, userID uuid.UUID) error
	WithTx(tx *gorm.DB) Service
}

type service struct {
	repo     *Repository
	products *catalog.Repository
	options  customizations.Service
	tx       db.TxRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo *Repository, products *catalog.Repository, options customizations.Service, tx db.TxRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if options == nil {
		return nil, fmt.Errorf("customization service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: products, options: options, tx: tx}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{
		repo:     s.repo.WithTx(tx),
		products: s.products.WithTx(tx),
		options:  s.options.WithTx(tx),
		tx:       db.InTx(tx),
	}
}

func (s *service) bind(tx *gorm.DB) *service {
	return s.WithTx(tx).(*service)
}

func (s *service) Get(ctx context.Context, owner Owner) (*View, error) {
	if !owner.Valid() {
		return emptyView(), nil
	}
	cart, err := s.repo.FindCart(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyView(), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	items, err := s.liveItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	return buildView(cart, items), nil
}

func (s *service) Add(ctx context.Context, owner Owner, input AddInput) (*LineView, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart owner is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	var line *LineView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bound := s.bind(tx)
		item, err := bound.upsertLine(ctx, owner, input)
		if err != nil {
			return err
		}
		for _, in := range input.Customizations {
			if _, err := bound.attach(ctx, item.ID, in); err != nil {
				return err
			}
		}
		line, err = bound.lineByID(ctx, item.CartID, item.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

func (s *service) upsertLine(ctx context.Context, owner Owner, input AddInput) (*models.CartItem, error) {
	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	size, err := enums.ParseProductSize(input.Size)
	if err != nil || !product.HasSize(size.String()) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSize, fmt.Sprintf("size %q is not available for this product", input.Size)).
			WithDetails(map[string]any{"available_sizes": []string(product.AvailableSizes)})
	}

	cart, err := s.repo.EnsureCart(ctx, owner)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve cart")
	}

	existing, err := s.repo.FindItem(ctx, cart.ID, product.ID, size.String())
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
	}

	quantity := input.Quantity
	if existing != nil && !input.Override {
		quantity += existing.Quantity
	}
	if available := product.StockForSize(size.String()); quantity > available {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("only %d left in size %s", available, size)).
			WithDetails(map[string]any{"available": available, "requested": quantity})
	}

	if existing != nil {
		if err := s.repo.UpdateItem(ctx, existing.ID, map[string]any{"quantity": quantity}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update cart line")
		}
		existing.Quantity = quantity
		return existing, nil
	}

	item := &models.CartItem{
		CartID:    cart.ID,
		ProductID: product.ID,
		Size:      size.String(),
		Quantity:  quantity,
		UnitPrice: product.CurrentPrice(),
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
	}
	return item, nil
}

func (s *service) Remove(ctx context.Context, owner Owner, productID uuid.UUID, size string) error {
	if !owner.Valid() {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindCart(ctx, owner)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		item, err := repo.FindItem(ctx, cart.ID, productID, strings.ToUpper(strings.TrimSpace(size)))
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
		}
		return nil
	})
}

func (s *service) UpdateQuantity(ctx context.Context, owner Owner, productID uuid.UUID, size string, quantity int) (*LineView, error) {
	if quantity <= 0 {
		return nil, s.Remove(ctx, owner, productID, size)
	}
	return s.Add(ctx, owner, AddInput{ProductID: productID, Size: size, Quantity: quantity, Override: true})
}

func (s *service) AttachCustomization(ctx context.Context, owner Owner, lineID uuid.UUID, input CustomizationInput) (*CustomizationView, error) {
	if !owner.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
	}
	var view *CustomizationView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		bound := s.bind(tx)
		cart, err := bound.repo.FindCart(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if _, err := bound.repo.FindItemByID(ctx, cart.ID, lineID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}
		view, err = bound.attach(ctx, lineID, input)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) attach(ctx context.Context, lineID uuid.UUID, input CustomizationInput) (*CustomizationView, error) {
	option, err := s.resolveOption(ctx, input)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(input.Text)
	if option.Type == enums.CustomizationTypeName {
		if text == "" {
			text = pricing.NameText(input.Name, input.Number)
		}
		if text == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name customization requires a name or number")
		}
	}
	if utf8.RuneCountInString(text) > pricing.MaxCustomTextLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("custom text exceeds %d characters", pricing.MaxCustomTextLength))
	}

	row := &models.CartItemCustomization{
		CartItemID: lineID,
		CustomText: text,
		Quantity:   input.Quantity,
	}
	if err := s.repo.SaveCustomization(ctx, row, *option); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save customization")
	}
	row.Option = option
	view := customizationView(*row)
	return &view, nil
}

func (s *service) resolveOption(ctx context.Context, input CustomizationInput) (*models.CustomizationOption, error) {
	if input.OptionID != nil {
		return s.options.Get(ctx, *input.OptionID)
	}
	switch input.Type {
	case enums.CustomizationTypeName:
		return s.options.GetOrCreateName(ctx)
	case enums.CustomizationTypeBadge:
		return s.options.GetOrCreateBadge(ctx, input.BadgeType)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "option_id or a name/badge type is required")
	}
}

func (s *service) DetachCustomization(ctx context.Context, owner Owner, customizationID uuid.UUID) error {
	if !owner.Valid() {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customization not found")
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindCart(ctx, owner)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customization not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if _, err := repo.FindCustomization(ctx, cart.ID, customizationID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customization not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load customization")
		}
		if err := repo.DeleteCustomization(ctx, customizationID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete customization")
		}
		return nil
	})
}

func (s *service) Total(ctx context.Context, owner Owner) (decimal.Decimal, error) {
	lines, err := s.Lines(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total())
	}
	return total, nil
}

// Lines returns a fresh slice of the cart lines whose product still exists.
func (s *service) Lines(ctx context.Context, owner Owner) ([]models.CartItem, error) {
	if !owner.Valid() {
		return []models.CartItem{}, nil
	}
	cart, err := s.repo.FindCart(ctx, owner)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []models.CartItem{}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	return s.liveItems(ctx, cart.ID)
}

func (s *service) Clear(ctx context.Context, owner Owner) error {
	if !owner.Valid() {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cart, err := repo.FindCart(ctx, owner)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
		}
		if err := repo.DeleteItems(ctx, cart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
}

func (s *service) MergeSessionCart(ctx context.Context, sessionToken string, userID uuid.UUID) error {
	session := ForSession(sessionToken)
	if !session.Valid() || userID == uuid.Nil {
		return nil
	}
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		anon, err := repo.FindCart(ctx, session)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session cart")
		}
		target, err := repo.EnsureCart(ctx, ForUser(userID))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve user cart")
		}

		items, err := repo.ListItems(ctx, anon.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session cart lines")
		}
		for _, item := range items {
			if err := mergeLine(ctx, repo, target.ID, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge cart line")
			}
		}
		if err := repo.DeleteItems(ctx, anon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop session cart lines")
		}
		if err := repo.DeleteCart(ctx, anon.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop session cart")
		}
		return nil
	})
}

func mergeLine(ctx context.Context, repo *Repository, targetCartID uuid.UUID, item models.CartItem) error {
	existing, err := repo.FindItem(ctx, targetCartID, item.ProductID, item.Size)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repo.UpdateItem(ctx, item.ID, map[string]any{"cart_id": targetCartID})
	}
	if err != nil {
		return err
	}
	if err := repo.UpdateItem(ctx, existing.ID, map[string]any{"quantity": existing.Quantity + item.Quantity}); err != nil {
		return err
	}
	if err := repo.MoveCustomizations(ctx, item.ID, existing.ID); err != nil {
		return err
	}
	return repo.DeleteItem(ctx, item.ID)
}

func (s *service) lineByID(ctx context.Context, cartID, itemID uuid.UUID) (*LineView, error) {
	items, err := s.liveItems(ctx, cartID)
	if err != nil {
		return nil, err
	}
	for _, item := range items {
		if item.ID == itemID {
			view := lineView(item)
			return &view, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
}

func (s *service) liveItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	rows, err := s.repo.ListItems(ctx, cartID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
	}
	live := make([]models.CartItem, 0, len(rows))
	for _, row := range rows {
		if row.Product == nil {
			continue
		}
		live = append(live, row)
	}
	return live, nil
}
