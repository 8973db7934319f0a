package repository

import (
	"context"

	"github.com/shinyyama/hoko/internal/model"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, m *model.Message) error
	ListThread(ctx context.Context, postID, userA, userB string) ([]model.Message, error)
	MarkThreadRead(ctx context.Context, postID, receiverID, senderID string) error
	MarkRead(ctx context.Context, id string) error
	SetDB(db *gorm.DB)
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(ctx context.Context, m *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Create(m).Error
}

// ListThread returns both directions of the a/b conversation about one post, oldest first.
func (r *messageRepository) ListThread(ctx context.Context, postID, userA, userB string) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", userA, userB, userB, userA).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) MarkThreadRead(ctx context.Context, postID, receiverID, senderID string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("post_id = ? AND receiver_id = ? AND sender_id = ?", postID, receiverID, senderID).
		Update("is_read", true).Error
}

func (r *messageRepository) MarkRead(ctx context.Context, id string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ?", id).
		Update("is_read", true).Error
}

func (r *messageRepository) SetDB(db *gorm.DB) {
	r.db = db
}
