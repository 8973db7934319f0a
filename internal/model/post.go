package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	PostStatusActive = "active"
	PostStatusClosed = "closed"
)

type Post struct {
	ID             string                      `gorm:"primaryKey;size:36" json:"id"`
	UserID         string                      `gorm:"column:user_id;size:36;not null;index" json:"user_id"`
	CityID         string                      `gorm:"column:city_id;size:36;not null;index:idx_posts_city_status" json:"city_id"`
	ProductName    string                      `gorm:"column:product_name;size:255;not null" json:"product_name"`
	Category       string                      `gorm:"column:category;size:64" json:"category,omitempty"`
	Brand          string                      `gorm:"column:brand;size:255" json:"brand,omitempty"`
	Quantity       int                         `gorm:"column:quantity" json:"quantity,omitempty"`
	Unit           string                      `gorm:"column:unit;size:32" json:"unit,omitempty"`
	Fragrance      string                      `gorm:"column:fragrance;size:64" json:"fragrance,omitempty"`
	Details        string                      `gorm:"column:details;type:text" json:"details,omitempty"`
	Status         string                      `gorm:"column:status;size:32;not null;index:idx_posts_city_status" json:"status"`
	OfferCount     int                         `gorm:"column:offer_count;not null;default:0" json:"offer_count"`
	AttachmentURLs datatypes.JSONSlice[string] `gorm:"column:attachment_urls" json:"attachments,omitempty"`
	CreatedAt      time.Time                   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time                   `gorm:"autoUpdateTime" json:"updated_at"`
	User           *User                       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	City           *City                       `gorm:"foreignKey:CityID" json:"city,omitempty"`
}

func (Post) TableName() string {
	return "posts"
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
