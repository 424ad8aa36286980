package service

import "errors"

var (
	// ErrSaleNotFound is returned when a sale cannot be found
	ErrSaleNotFound = errors.New("sale not found")

	// ErrSaleUpcoming is returned when a purchase arrives before the sale window opens
	ErrSaleUpcoming = errors.New("sale has not started yet")

	// ErrSaleEnded is returned when a purchase arrives after the sale window closed
	ErrSaleEnded = errors.New("sale has ended")

	// ErrSoldOut is returned when the sale has no remaining stock
	ErrSoldOut = errors.New("sale sold out")

	// ErrAlreadyPurchased is returned when a user already holds a committed order for the sale
	ErrAlreadyPurchased = errors.New("user already purchased in this sale")

	// ErrCoordinatorUnavailable is returned when the fast coordinator cannot be reached
	// at a step that requires its atomic guarantee
	ErrCoordinatorUnavailable = errors.New("fast coordinator unavailable")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)
