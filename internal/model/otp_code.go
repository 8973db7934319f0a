package model

import "time"

// OTPCode is written by the send-otp function when it delivers codes itself.
type OTPCode struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	Phone     string    `gorm:"column:phone;size:15;not null;index:idx_otp_phone_verified"`
	Code      string    `gorm:"column:code;size:6;not null"`
	Verified  bool      `gorm:"column:verified;not null;default:false;index:idx_otp_phone_verified"`
	ExpiresAt time.Time `gorm:"column:expires_at;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (OTPCode) TableName() string {
	return "otp_codes"
}
