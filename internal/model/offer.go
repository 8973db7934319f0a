package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const OfferStatusPending = "pending"

type Offer struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	PostID    string    `gorm:"column:post_id;size:36;not null;index" json:"post_id"`
	SellerID  string    `gorm:"column:seller_id;size:36;not null;index" json:"seller_id"`
	Price     float64   `gorm:"column:price;not null" json:"price"`
	Notes     string    `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Status    string    `gorm:"column:status;size:32;not null" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
	Seller    *User     `gorm:"foreignKey:SellerID" json:"seller,omitempty"`
	Post      *Post     `gorm:"foreignKey:PostID" json:"post,omitempty"`
}

func (Offer) TableName() string {
	return "offers"
}

func (o *Offer) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
