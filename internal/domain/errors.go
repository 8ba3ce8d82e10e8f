package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrRateLimited    = errors.New("rate limited")
	ErrSessionExpired = errors.New("steam session expired")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrEmptyInventory = errors.New("inventory fetch returned no items")
	ErrNoData         = errors.New("no price data")
	ErrSyncBusy       = errors.New("sync already in progress")
	ErrLockHeld       = errors.New("lock already held")
)
