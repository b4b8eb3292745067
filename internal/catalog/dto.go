package catalog

import (
	"time"

	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sort orders accepted by ListProducts.
const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
	SortPopular   = "popular"
)

const (
	defaultPageSize = 24
	maxPageSize     = 100
)

// ProductFilter narrows ListProducts. Category and Team are slugs.
type ProductFilter struct {
	Category string
	Team     string
	Size     string
	Query    string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	OnSale   bool
	Featured bool
	Sort     string
	Limit    int
	Offset   int
}

// SetStockInput replaces the stock of a product. When Sizes is non-empty the
// total is their sum and Total is ignored.
type SetStockInput struct {
	Total *int           `json:"total,omitempty"`
	Sizes map[string]int `json:"sizes,omitempty"`
}

// AddImageInput describes a new gallery image.
type AddImageInput struct {
	URL       string `json:"url" validate:"required,url"`
	AltText   string `json:"alt_text"`
	IsPrimary bool   `json:"is_primary"`
	Position  int    `json:"position" validate:"gte=0"`
}

// ReviewInput is a shopper rating.
type ReviewInput struct {
	Rating  int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

type CategoryDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
}

type TeamDTO struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Slug       string     `json:"slug"`
	Country    string     `json:"country,omitempty"`
	CategoryID *uuid.UUID `json:"category_id,omitempty"`
}

type ImageDTO struct {
	ID        uuid.UUID `json:"id"`
	URL       string    `json:"url"`
	AltText   string    `json:"alt_text,omitempty"`
	IsPrimary bool      `json:"is_primary"`
	Position  int       `json:"position"`
}

// ProductDTO is the list and detail shape of a product.
type ProductDTO struct {
	ID                 uuid.UUID        `json:"id"`
	Name               string           `json:"name"`
	Slug               string           `json:"slug"`
	Description        string           `json:"description,omitempty"`
	Category           *CategoryDTO     `json:"category,omitempty"`
	Team               *TeamDTO         `json:"team,omitempty"`
	Price              decimal.Decimal  `json:"price"`
	SalePrice          *decimal.Decimal `json:"sale_price,omitempty"`
	CurrentPrice       decimal.Decimal  `json:"current_price"`
	PriceFormatted     string           `json:"price_formatted"`
	IsOnSale           bool             `json:"is_on_sale"`
	DiscountPercentage int              `json:"discount_percentage"`
	Sizes              []string         `json:"available_sizes"`
	SizeStock          map[string]int   `json:"size_stock,omitempty"`
	StockQuantity      int              `json:"stock_quantity"`
	IsAvailable        bool             `json:"is_available"`
	IsFeatured         bool             `json:"is_featured"`
	SalesCount         int              `json:"sales_count"`
	PrimaryImage       *ImageDTO        `json:"primary_image,omitempty"`
	Images             []ImageDTO       `json:"images,omitempty"`
	ReviewCount        int64            `json:"review_count,omitempty"`
	AverageRating      float64          `json:"average_rating,omitempty"`
}

// ProductList is a page of products.
type ProductList struct {
	Items  []ProductDTO `json:"items"`
	Total  int64        `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

type ReviewDTO struct {
	ID        uuid.UUID `json:"id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Author    string    `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}

func categoryDTO(c *models.Category) *CategoryDTO {
	if c == nil {
		return nil
	}
	return &CategoryDTO{ID: c.ID, Name: c.Name, Slug: c.Slug, Description: c.Description}
}

func teamDTO(t *models.Team) *TeamDTO {
	if t == nil {
		return nil
	}
	return &TeamDTO{ID: t.ID, Name: t.Name, Slug: t.Slug, Country: t.Country, CategoryID: t.CategoryID}
}

func imageDTO(i models.ProductImage) ImageDTO {
	return ImageDTO{ID: i.ID, URL: i.URL, AltText: i.AltText, IsPrimary: i.IsPrimary, Position: i.Position}
}

// FromProduct maps a product with its preloaded relations.
func FromProduct(p *models.Product) ProductDTO {
	dto := ProductDTO{
		ID:                 p.ID,
		Name:               p.Name,
		Slug:               p.Slug,
		Description:        p.Description,
		Category:           categoryDTO(p.Category),
		Team:               teamDTO(p.Team),
		Price:              p.Price,
		CurrentPrice:       p.CurrentPrice(),
		PriceFormatted:     money.Format(p.CurrentPrice()),
		IsOnSale:           p.IsOnSale(),
		DiscountPercentage: p.DiscountPercentage(),
		Sizes:              append([]string{}, p.AvailableSizes...),
		StockQuantity:      p.StockQuantity,
		IsAvailable:        p.IsAvailable(),
		IsFeatured:         p.IsFeatured,
		SalesCount:         p.SalesCount,
	}
	if p.SalePrice.Valid {
		sale := p.SalePrice.Decimal
		dto.SalePrice = &sale
	}
	if len(p.SizeStocks) > 0 {
		dto.SizeStock = make(map[string]int, len(p.SizeStocks))
		for _, row := range p.SizeStocks {
			dto.SizeStock[row.Size] = row.Quantity
		}
	}
	if img := p.PrimaryImage(); img != nil {
		primary := imageDTO(*img)
		dto.PrimaryImage = &primary
	}
	for _, img := range p.Images {
		dto.Images = append(dto.Images, imageDTO(img))
	}
	return dto
}

func reviewDTO(r models.Review) ReviewDTO {
	author := "Client"
	if r.User != nil {
		author = r.User.FirstName
	}
	return ReviewDTO{ID: r.ID, Rating: r.Rating, Comment: r.Comment, Author: author, CreatedAt: r.CreatedAt}
}
