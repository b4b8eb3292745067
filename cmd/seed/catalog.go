package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/maillot-backend/internal/customizations"
	"github.com/angelmondragon/maillot-backend/internal/users"
	"github.com/angelmondragon/maillot-backend/pkg/config"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/maillot-backend/pkg/db/types"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/angelmondragon/maillot-backend/pkg/security"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type categorySeed struct {
	Name        string
	Description string
	Teams       []teamSeed
}

type teamSeed struct {
	Name     string
	Country  string
	Products []productSeed
}

type productSeed struct {
	Name      string
	Price     int64
	SalePrice int64
	Featured  bool
	Stock     map[string]int
}

var defaultSizes = map[string]int{"S": 8, "M": 12, "L": 12, "XL": 6, "XXL": 4}

var catalogSeed = []categorySeed{
	{
		Name:        "Clubs européens",
		Description: "Maillots officiels des grands clubs d'Europe",
		Teams: []teamSeed{
			{Name: "Real Madrid", Country: "Espagne", Products: []productSeed{
				{Name: "Real Madrid Domicile 2024/25", Price: 35000, Featured: true, Stock: defaultSizes},
				{Name: "Real Madrid Extérieur 2024/25", Price: 35000, SalePrice: 30000, Stock: defaultSizes},
			}},
			{Name: "FC Barcelone", Country: "Espagne", Products: []productSeed{
				{Name: "FC Barcelone Domicile 2024/25", Price: 35000, Stock: defaultSizes},
			}},
			{Name: "Paris Saint-Germain", Country: "France", Products: []productSeed{
				{Name: "PSG Domicile 2024/25", Price: 32000, Featured: true, Stock: defaultSizes},
			}},
		},
	},
	{
		Name:        "Sélections africaines",
		Description: "Les maillots des Lions, Éléphants et autres sélections",
		Teams: []teamSeed{
			{Name: "Sénégal", Country: "Sénégal", Products: []productSeed{
				{Name: "Sénégal Domicile CAN 2024", Price: 25000, Featured: true, Stock: defaultSizes},
				{Name: "Sénégal Extérieur CAN 2024", Price: 25000, SalePrice: 21000, Stock: defaultSizes},
			}},
			{Name: "Côte d'Ivoire", Country: "Côte d'Ivoire", Products: []productSeed{
				{Name: "Côte d'Ivoire Domicile CAN 2024", Price: 25000, Stock: defaultSizes},
			}},
			{Name: "Cameroun", Country: "Cameroun", Products: []productSeed{
				{Name: "Cameroun Domicile 2024", Price: 24000, Stock: map[string]int{"M": 5, "L": 5, "XL": 3}},
			}},
		},
	},
	{
		Name:        "Rétro",
		Description: "Maillots vintage des années 90 et 2000",
		Teams: []teamSeed{
			{Name: "AC Milan", Country: "Italie", Products: []productSeed{
				{Name: "AC Milan Rétro 1994", Price: 28000, Stock: map[string]int{"M": 3, "L": 3}},
			}},
		},
	},
}

var seedBadges = []enums.BadgeType{
	enums.BadgeTypeLiga,
	enums.BadgeTypeUEFA,
	enums.BadgeTypeChampions,
	enums.BadgeTypeEuropa,
	enums.BadgeTypePremier,
	enums.BadgeTypeBundesliga,
	enums.BadgeTypeSerieA,
	enums.BadgeTypeLigue1,
}

type summary struct {
	Categories     int
	Teams          int
	Products       int
	Customizations int
}

// seedCatalog upserts the demo catalog by slug, so reruns leave existing rows alone.
func seedCatalog(ctx context.Context, tx *gorm.DB) (summary, error) {
	var out summary
	for _, cs := range catalogSeed {
		category := models.Category{Name: cs.Name, Slug: models.Slugify(cs.Name), Description: cs.Description, IsActive: true}
		if err := tx.WithContext(ctx).Where("slug = ?", category.Slug).FirstOrCreate(&category).Error; err != nil {
			return out, fmt.Errorf("seed category %s: %w", cs.Name, err)
		}
		out.Categories++

		for _, ts := range cs.Teams {
			team := models.Team{Name: ts.Name, Slug: models.Slugify(ts.Name), Country: ts.Country, CategoryID: &category.ID, IsActive: true}
			if err := tx.WithContext(ctx).Where("slug = ?", team.Slug).FirstOrCreate(&team).Error; err != nil {
				return out, fmt.Errorf("seed team %s: %w", ts.Name, err)
			}
			out.Teams++

			for _, ps := range ts.Products {
				created, err := seedProduct(ctx, tx, category.ID, team.ID, ps)
				if err != nil {
					return out, err
				}
				if created {
					out.Products++
				}
			}
		}
	}

	options, err := customizations.NewService(customizations.NewRepository(tx))
	if err != nil {
		return out, err
	}
	if _, err := options.GetOrCreateName(ctx); err != nil {
		return out, err
	}
	out.Customizations++
	for _, badge := range seedBadges {
		if _, err := options.GetOrCreateBadge(ctx, badge); err != nil {
			return out, err
		}
		out.Customizations++
	}
	return out, nil
}

func seedProduct(ctx context.Context, tx *gorm.DB, categoryID, teamID uuid.UUID, ps productSeed) (bool, error) {
	slug := models.Slugify(ps.Name)
	var existing models.Product
	err := tx.WithContext(ctx).Where("slug = ?", slug).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup product %s: %w", ps.Name, err)
	}

	sizes := make(dbtypes.SizeList, 0, len(ps.Stock))
	stocks := make([]models.ProductSizeStock, 0, len(ps.Stock))
	total := 0
	for _, size := range []string{"XS", "S", "M", "L", "XL", "XXL", "XXXL"} {
		qty, ok := ps.Stock[size]
		if !ok {
			continue
		}
		sizes = append(sizes, size)
		stocks = append(stocks, models.ProductSizeStock{Size: size, Quantity: qty})
		total += qty
	}

	product := models.Product{
		Name:           ps.Name,
		Slug:           slug,
		CategoryID:     categoryID,
		TeamID:         teamID,
		Description:    "Maillot officiel " + ps.Name,
		Price:          decimal.NewFromInt(ps.Price),
		AvailableSizes: sizes,
		StockQuantity:  total,
		IsActive:       true,
		IsFeatured:     ps.Featured,
		SizeStocks:     stocks,
	}
	if ps.SalePrice > 0 {
		product.SalePrice = decimal.NewNullDecimal(decimal.NewFromInt(ps.SalePrice))
	}
	if err := tx.WithContext(ctx).Create(&product).Error; err != nil {
		return false, fmt.Errorf("create product %s: %w", ps.Name, err)
	}
	return true, nil
}

// seedStaff creates the staff account when email and password are supplied.
func seedStaff(ctx context.Context, tx *gorm.DB, email, password string, pwCfg config.PasswordConfig) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}
	repo := users.NewRepository(tx)
	if _, err := repo.FindByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("lookup staff: %w", err)
	}
	hash, err := security.HashPassword(password, pwCfg)
	if err != nil {
		return false, fmt.Errorf("hash staff password: %w", err)
	}
	if _, err := repo.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Équipe",
		LastName:     "Maillots",
		Role:         enums.UserRoleStaff,
	}); err != nil {
		return false, fmt.Errorf("create staff: %w", err)
	}
	return true, nil
}
