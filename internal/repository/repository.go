package repository

import (
	"errors"

	"gorm.io/gorm"
)

var ErrDBNotReady = errors.New("database not initialized")

// Set bundles every collection the marketplace talks to.
type Set struct {
	Cities        CityRepository
	Users         UserRepository
	Posts         PostRepository
	Offers        OfferRepository
	Notifications NotificationRepository
	Messages      MessageRepository
	OTPCodes      OTPRepository
}

func NewSet(db *gorm.DB) *Set {
	return &Set{
		Cities:        NewCityRepository(db),
		Users:         NewUserRepository(db),
		Posts:         NewPostRepository(db),
		Offers:        NewOfferRepository(db),
		Notifications: NewNotificationRepository(db),
		Messages:      NewMessageRepository(db),
		OTPCodes:      NewOTPRepository(db),
	}
}

type dbSetter interface {
	SetDB(db *gorm.DB)
}

// SetDB injects a late connection into every repository of the set.
func (s *Set) SetDB(db *gorm.DB) {
	for _, r := range []interface{}{s.Cities, s.Users, s.Posts, s.Offers, s.Notifications, s.Messages, s.OTPCodes} {
		if setter, ok := r.(dbSetter); ok {
			setter.SetDB(db)
		}
	}
}
