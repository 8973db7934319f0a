package service

import (
	"context"
	"log"
	"strings"

	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/repository"
)

type ChatService interface {
	Thread(ctx context.Context, postID, me, other string) ([]model.Message, error)
	Send(ctx context.Context, sender *model.User, receiverID string, post *model.Post, content string) (*model.Message, error)
	MarkThreadRead(ctx context.Context, postID, me, other string) error
	MarkRead(ctx context.Context, messageID string) error
	Counterpart(ctx context.Context, embedded *model.User, userID string) (*model.User, error)
}

type chatService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	notifier NotificationService
}

func NewChatService(messages repository.MessageRepository, users repository.UserRepository, notifier NotificationService) ChatService {
	return &chatService{messages: messages, users: users, notifier: notifier}
}

func (s *chatService) Thread(ctx context.Context, postID, me, other string) ([]model.Message, error) {
	return s.messages.ListThread(ctx, postID, me, other)
}

// Send inserts the message and, only when that succeeded, notifies the
// receiver.
func (s *chatService) Send(ctx context.Context, sender *model.User, receiverID string, post *model.Post, content string) (*model.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if sender == nil || post == nil || receiverID == "" {
		return nil, ErrForbidden
	}
	m := &model.Message{
		SenderID:   sender.ID,
		ReceiverID: receiverID,
		PostID:     post.ID,
		Content:    content,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		log.Printf("[chat] stage=insert_fail post=%s sender=%s err=%v", post.ID, sender.ID, err)
		return nil, err
	}
	s.notifier.Notify(ctx, NewMessageNotification(post, sender, receiverID))
	return m, nil
}

func (s *chatService) MarkThreadRead(ctx context.Context, postID, me, other string) error {
	return s.messages.MarkThreadRead(ctx, postID, me, other)
}

func (s *chatService) MarkRead(ctx context.Context, messageID string) error {
	return s.messages.MarkRead(ctx, messageID)
}

// Counterpart returns the embedded user when it is the one asked for,
// otherwise loads it by id.
func (s *chatService) Counterpart(ctx context.Context, embedded *model.User, userID string) (*model.User, error) {
	if embedded != nil && (userID == "" || embedded.ID == userID) {
		return embedded, nil
	}
	if userID == "" {
		return nil, ErrCounterpartMissing
	}
	u, err := s.users.FindByID(ctx, userID)
	if err != nil || u == nil {
		log.Printf("[chat] stage=counterpart_fail user=%s err=%v", userID, err)
		return nil, ErrCounterpartMissing
	}
	return u, nil
}

// CallLink is the dial link for a user's mobile number.
func CallLink(u *model.User) string {
	if u == nil || u.Mobile == "" {
		return ""
	}
	return "tel:" + u.Mobile
}
