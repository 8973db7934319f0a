package repository

import (
	"context"
	"time"

	"github.com/shinyyama/hoko/internal/model"
	"gorm.io/gorm"
)

// PostFields are the buyer-editable columns of a post.
type PostFields struct {
	ProductName string
	Category    string
	Brand       string
	Quantity    int
	Unit        string
	Fragrance   string
	Details     string
}

type PostRepository interface {
	Create(ctx context.Context, p *model.Post) error
	FindByID(ctx context.Context, id string) (*model.Post, error)
	ListActiveByCity(ctx context.Context, cityID string) ([]model.Post, error)
	ListByUser(ctx context.Context, userID string) ([]model.Post, error)
	UpdateFields(ctx context.Context, id string, f PostFields) error
	IncrementOfferCount(ctx context.Context, id string) error
	SetDB(db *gorm.DB)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Omit("User", "City").Create(p).Error
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var p model.Post
	if err := r.db.WithContext(ctx).Preload("User").Preload("City").Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *postRepository) ListActiveByCity(ctx context.Context, cityID string) ([]model.Post, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Post
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("City").
		Where("city_id = ? AND status = ?", cityID, model.PostStatusActive).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]model.Post, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Post
	if err := r.db.WithContext(ctx).
		Preload("City").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *postRepository) UpdateFields(ctx context.Context, id string, f PostFields) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"product_name": f.ProductName,
			"category":     f.Category,
			"brand":        f.Brand,
			"quantity":     f.Quantity,
			"unit":         f.Unit,
			"fragrance":    f.Fragrance,
			"details":      f.Details,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postRepository) IncrementOfferCount(ctx context.Context, id string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		Update("offer_count", gorm.Expr("offer_count + ?", 1)).Error
}

func (r *postRepository) SetDB(db *gorm.DB) {
	r.db = db
}
