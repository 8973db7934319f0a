package service

import (
	"context"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/shinyyama/hoko/internal/model"
	"github.com/shinyyama/hoko/internal/repository"
)

type OfferService interface {
	Submit(ctx context.Context, seller *model.User, postID, price, notes string) (*model.Offer, error)
	Edit(ctx context.Context, seller *model.User, offerID, price, notes string) (*model.Offer, error)
	ListForPost(ctx context.Context, postID string) ([]model.Offer, error)
	ListMine(ctx context.Context, sellerID string) ([]model.Offer, error)
}

type offerService struct {
	offers   repository.OfferRepository
	posts    repository.PostRepository
	notifier NotificationService
}

func NewOfferService(offers repository.OfferRepository, posts repository.PostRepository, notifier NotificationService) OfferService {
	return &offerService{offers: offers, posts: posts, notifier: notifier}
}

func ParsePrice(in string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(in), 64)
	if err != nil || v <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, ErrInvalidPrice
	}
	return v, nil
}

// Submit inserts the offer, bumps the post's offer count and notifies the
// post owner. The count update is a separate write; its failure is logged
// and the offer stands.
func (s *offerService) Submit(ctx context.Context, seller *model.User, postID, price, notes string) (*model.Offer, error) {
	if seller == nil {
		return nil, ErrForbidden
	}
	amount, err := ParsePrice(price)
	if err != nil {
		return nil, err
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, notFound(err)
	}

	o := &model.Offer{
		PostID:   post.ID,
		SellerID: seller.ID,
		Price:    amount,
		Notes:    strings.TrimSpace(notes),
		Status:   model.OfferStatusPending,
	}
	if err := s.offers.Create(ctx, o); err != nil {
		log.Printf("[offer] stage=insert_fail post=%s seller=%s err=%v", post.ID, seller.ID, err)
		return nil, err
	}
	if err := s.posts.IncrementOfferCount(ctx, post.ID); err != nil {
		log.Printf("[offer] stage=offer_count_fail post=%s err=%v", post.ID, err)
	}
	s.notifier.Notify(ctx, NewOfferNotification(post, o, seller))
	return o, nil
}

func (s *offerService) Edit(ctx context.Context, seller *model.User, offerID, price, notes string) (*model.Offer, error) {
	if seller == nil {
		return nil, ErrForbidden
	}
	amount, err := ParsePrice(price)
	if err != nil {
		return nil, err
	}
	o, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		return nil, notFound(err)
	}
	if o.SellerID != seller.ID {
		return nil, ErrForbidden
	}
	notes = strings.TrimSpace(notes)
	if err := s.offers.UpdatePriceNotes(ctx, offerID, amount, notes); err != nil {
		log.Printf("[offer] stage=update_fail offer=%s err=%v", offerID, err)
		return nil, notFound(err)
	}
	o.Price = amount
	o.Notes = notes

	post, err := s.posts.FindByID(ctx, o.PostID)
	if err != nil {
		log.Printf("[offer] stage=load_post_fail offer=%s post=%s err=%v", offerID, o.PostID, err)
		return o, nil
	}
	s.notifier.Notify(ctx, OfferUpdatedNotification(post, o, seller))
	return o, nil
}

func (s *offerService) ListForPost(ctx context.Context, postID string) ([]model.Offer, error) {
	return s.offers.ListByPost(ctx, postID)
}

func (s *offerService) ListMine(ctx context.Context, sellerID string) ([]model.Offer, error) {
	return s.offers.ListBySeller(ctx, sellerID)
}
