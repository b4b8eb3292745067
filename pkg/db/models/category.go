package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups teams and products (clubs, national teams, retro...).
type Category struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Slug        string    `gorm:"column:slug;not null;uniqueIndex"`
	Description string    `gorm:"column:description"`
	IsActive    bool      `gorm:"column:is_active;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	return nil
}

// Team is the club or national side a jersey belongs to.
type Team struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Name        string     `gorm:"column:name;not null"`
	Slug        string     `gorm:"column:slug;not null;uniqueIndex"`
	Country     string     `gorm:"column:country"`
	CategoryID  *uuid.UUID `gorm:"column:category_id;type:uuid"`
	Description string     `gorm:"column:description"`
	IsActive    bool       `gorm:"column:is_active;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	assignID(&t.ID)
	if t.Slug == "" {
		t.Slug = Slugify(t.Name)
	}
	return nil
}
