package repository

import (
	"context"
	"time"

	"github.com/shinyyama/hoko/internal/model"
	"gorm.io/gorm"
)

type OfferRepository interface {
	Create(ctx context.Context, o *model.Offer) error
	FindByID(ctx context.Context, id string) (*model.Offer, error)
	ListByPost(ctx context.Context, postID string) ([]model.Offer, error)
	ListBySeller(ctx context.Context, sellerID string) ([]model.Offer, error)
	SellerIDsByPost(ctx context.Context, postID string) ([]string, error)
	UpdatePriceNotes(ctx context.Context, id string, price float64, notes string) error
	SetDB(db *gorm.DB)
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, o *model.Offer) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Omit("Seller", "Post").Create(o).Error
}

func (r *offerRepository) FindByID(ctx context.Context, id string) (*model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var o model.Offer
	if err := r.db.WithContext(ctx).Preload("Seller").Where("id = ?", id).First(&o).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByPost returns the offers on a post, cheapest first.
func (r *offerRepository) ListByPost(ctx context.Context, postID string) ([]model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Offer
	if err := r.db.WithContext(ctx).
		Preload("Seller.City").
		Where("post_id = ?", postID).
		Order("price ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *offerRepository) ListBySeller(ctx context.Context, sellerID string) ([]model.Offer, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Offer
	if err := r.db.WithContext(ctx).
		Preload("Post.User").
		Preload("Post.City").
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *offerRepository) SellerIDsByPost(ctx context.Context, postID string) ([]string, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("post_id = ?", postID).
		Pluck("seller_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *offerRepository) UpdatePriceNotes(ctx context.Context, id string, price float64, notes string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"price":      price,
			"notes":      notes,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *offerRepository) SetDB(db *gorm.DB) {
	r.db = db
}
