package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationNewOffer     NotificationType = "new_offer"
	NotificationNewMessage   NotificationType = "new_message"
	NotificationPostUpdated  NotificationType = "post_updated"
	NotificationOfferUpdated NotificationType = "offer_updated"
)

type Notification struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	UserID    string           `gorm:"column:user_id;size:36;index;not null" json:"user_id"`
	Type      NotificationType `gorm:"column:type;size:64;not null" json:"type"`
	Title     string           `gorm:"column:title;size:255" json:"title"`
	Message   string           `gorm:"column:message;type:text" json:"message,omitempty"`
	PostID    *string          `gorm:"column:post_id;size:36;index" json:"post_id,omitempty"`
	OfferID   *string          `gorm:"column:offer_id;size:36;index" json:"offer_id,omitempty"`
	IsRead    bool             `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return nil
}
