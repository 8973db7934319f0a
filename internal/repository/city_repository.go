package repository

import (
	"context"

	"github.com/shinyyama/hoko/internal/model"
	"gorm.io/gorm"
)

type CityRepository interface {
	List(ctx context.Context) ([]model.City, error)
	FindByID(ctx context.Context, id string) (*model.City, error)
	SetDB(db *gorm.DB)
}

type cityRepository struct {
	db *gorm.DB
}

func NewCityRepository(db *gorm.DB) CityRepository {
	return &cityRepository{db: db}
}

func (r *cityRepository) List(ctx context.Context) ([]model.City, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.City
	if err := r.db.WithContext(ctx).Order("name").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *cityRepository) FindByID(ctx context.Context, id string) (*model.City, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var c model.City
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cityRepository) SetDB(db *gorm.DB) {
	r.db = db
}
