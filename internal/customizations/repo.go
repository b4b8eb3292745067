package customizations

import (
	"context"

	"github.com/angelmondragon/maillot-backend/pkg/db"
	"github.com/angelmondragon/maillot-backend/pkg/db/models"
	"github.com/angelmondragon/maillot-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists customization options.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// GetOrCreate inserts option unless its natural key exists, then returns the stored row.
// Concurrent callers always converge on the same row.
func (r *Repository) GetOrCreate(ctx context.Context, option models.CustomizationOption) (*models.CustomizationOption, error) {
	conn := r.db.WithContext(ctx)

	err := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "type"}, {Name: "badge_type"}, {Name: "name"}},
		DoNothing: true,
	}).Create(&option).Error
	if err != nil && !db.IsUniqueViolation(err, "") {
		return nil, err
	}

	return r.FindByNaturalKey(ctx, option.Type, option.BadgeType, option.Name)
}

// FindByNaturalKey loads the option identified by (type, badge type, name).
func (r *Repository) FindByNaturalKey(ctx context.Context, kind enums.CustomizationType, badge enums.BadgeType, name string) (*models.CustomizationOption, error) {
	var option models.CustomizationOption
	err := r.db.WithContext(ctx).
		Where("type = ? AND badge_type = ? AND name = ?", kind, badge, name).
		First(&option).Error
	if err != nil {
		return nil, err
	}
	return &option, nil
}

// FindByID loads an option by id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CustomizationOption, error) {
	var option models.CustomizationOption
	if err := r.db.WithContext(ctx).First(&option, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &option, nil
}

// ListActive returns active options ordered by type then name.
func (r *Repository) ListActive(ctx context.Context) ([]models.CustomizationOption, error) {
	var options []models.CustomizationOption
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("type ASC").
		Order("badge_type ASC").
		Order("name ASC").
		Find(&options).Error
	return options, err
}
