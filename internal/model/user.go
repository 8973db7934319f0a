package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID               string    `gorm:"primaryKey;size:36" json:"id"`
	Mobile           string    `gorm:"size:15;not null;uniqueIndex" json:"mobile"`
	CityID           string    `gorm:"column:city_id;size:36;index" json:"city_id"`
	IsBuyer          bool      `gorm:"column:is_buyer;not null;default:false" json:"is_buyer"`
	IsSeller         bool      `gorm:"column:is_seller;not null;default:false" json:"is_seller"`
	FirmName         string    `gorm:"column:firm_name;size:255" json:"firm_name,omitempty"`
	ManagerName      string    `gorm:"column:manager_name;size:255" json:"manager_name,omitempty"`
	BusinessCategory string    `gorm:"column:business_category;size:64" json:"business_category,omitempty"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	City             *City     `gorm:"foreignKey:CityID" json:"city,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// DisplayName is the firm name when one is registered, else fallback.
func (u *User) DisplayName(fallback string) string {
	if u == nil || u.FirmName == "" {
		return fallback
	}
	return u.FirmName
}
