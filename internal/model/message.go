package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Message struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	SenderID   string    `gorm:"column:sender_id;size:36;not null;index" json:"sender_id"`
	ReceiverID string    `gorm:"column:receiver_id;size:36;not null;index" json:"receiver_id"`
	PostID     string    `gorm:"column:post_id;size:36;not null;index" json:"post_id"`
	Content    string    `gorm:"column:content;type:text;not null" json:"content"`
	IsRead     bool      `gorm:"column:is_read;not null;default:false" json:"is_read"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Between reports whether the message belongs to the a/b pair in either direction.
func (m *Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}
