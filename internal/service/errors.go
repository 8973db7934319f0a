package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidPrice       = errors.New("price must be a positive number")
	ErrEmptyProduct       = errors.New("product name is required")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrCounterpartMissing = errors.New("counterpart user could not be loaded")
	ErrNoStorage          = errors.New("attachment storage is not configured")
)

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
