package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/hoko/internal/model"
	"gorm.io/gorm"
)

type OTPRepository interface {
	// FindPending returns the newest unverified, unexpired row matching
	// phone and code, or nil when none matches.
	FindPending(ctx context.Context, phone, code string, now time.Time) (*model.OTPCode, error)
	MarkVerified(ctx context.Context, id uint64) error
	SetDB(db *gorm.DB)
}

type otpRepository struct {
	db *gorm.DB
}

func NewOTPRepository(db *gorm.DB) OTPRepository {
	return &otpRepository{db: db}
}

func (r *otpRepository) FindPending(ctx context.Context, phone, code string, now time.Time) (*model.OTPCode, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var row model.OTPCode
	err := r.db.WithContext(ctx).
		Where("phone = ? AND code = ? AND verified = ? AND expires_at > ?", phone, code, false, now).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *otpRepository) MarkVerified(ctx context.Context, id uint64) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).
		Model(&model.OTPCode{}).
		Where("id = ?", id).
		Update("verified", true).Error
}

func (r *otpRepository) SetDB(db *gorm.DB) {
	r.db = db
}
