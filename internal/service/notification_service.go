package service

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/repository"
)

// FeedLimit is how many notifications a user's feed holds.
const FeedLimit = 50

type NotificationService interface {
	Create(ctx context.Context, n *model.Notification) error
	Notify(ctx context.Context, n *model.Notification)
	ListRecent(ctx context.Context, userID string) ([]model.Notification, error)
	MarkRead(ctx context.Context, id string) error
}

type notificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) NotificationService {
	return &notificationService{repo: repo}
}

func (s *notificationService) Create(ctx context.Context, n *model.Notification) error {
	if n == nil || n.UserID == "" || n.Type == "" {
		return fmt.Errorf("notification needs a user and a type")
	}
	ctx, cancel := withShortDeadline(ctx)
	defer cancel()
	return s.repo.Create(ctx, n)
}

// Notify is best-effort; it logs errors but does not return them to avoid breaking main flows.
func (s *notificationService) Notify(ctx context.Context, n *model.Notification) {
	if err := s.Create(ctx, n); err != nil {
		log.Printf("[notify] type=%s user=%s err=%v", n.Type, n.UserID, err)
	}
}

func (s *notificationService) ListRecent(ctx context.Context, userID string) ([]model.Notification, error) {
	if userID == "" {
		return nil, nil
	}
	return s.repo.ListRecent(ctx, userID, FeedLimit)
}

func (s *notificationService) MarkRead(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.repo.MarkRead(ctx, id)
}

// FormatPrice renders a price the way it was typed: 250, 99.5.
func FormatPrice(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

func NewOfferNotification(post *model.Post, offer *model.Offer, seller *model.User) *model.Notification {
	return &model.Notification{
		UserID:  post.UserID,
		Type:    model.NotificationNewOffer,
		Title:   "New Offer Received!",
		Message: fmt.Sprintf("%s submitted an offer of ₹%s for your %s requirement", seller.DisplayName("A seller"), FormatPrice(offer.Price), post.ProductName),
		PostID:  strPtr(post.ID),
		OfferID: strPtr(offer.ID),
	}
}

func OfferUpdatedNotification(post *model.Post, offer *model.Offer, seller *model.User) *model.Notification {
	return &model.Notification{
		UserID:  post.UserID,
		Type:    model.NotificationOfferUpdated,
		Title:   "Offer Updated!",
		Message: fmt.Sprintf("%s has updated their offer to ₹%s for your \"%s\" requirement.", seller.DisplayName("A seller"), FormatPrice(offer.Price), post.ProductName),
		PostID:  strPtr(post.ID),
		OfferID: strPtr(offer.ID),
	}
}

func PostUpdatedNotification(post *model.Post, sellerID string) *model.Notification {
	return &model.Notification{
		UserID:  sellerID,
		Type:    model.NotificationPostUpdated,
		Title:   "Requirement Updated!",
		Message: fmt.Sprintf("The buyer has updated their requirement for \"%s\". Please review the changes.", post.ProductName),
		PostID:  strPtr(post.ID),
	}
}

func NewMessageNotification(post *model.Post, sender *model.User, receiverID string) *model.Notification {
	return &model.Notification{
		UserID:  receiverID,
		Type:    model.NotificationNewMessage,
		Title:   "New Message",
		Message: fmt.Sprintf("%s sent you a message about \"%s\"", sender.DisplayName(sender.Mobile), post.ProductName),
		PostID:  strPtr(post.ID),
	}
}

func strPtr(v string) *string {
	return &v
}

// withShortDeadline bounds a best-effort write to two seconds.
func withShortDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, 2*time.Second)
}
