package domain

import "errors"

// Engine errors.
var (
	ErrInvalidPrice        = errors.New("invalid price")
	ErrBelowMinimum        = errors.New("deposit below minimum")
	ErrInsufficientBalance = errors.New("insufficient share balance")
	ErrInvalidAssetBounds  = errors.New("invalid asset weight bounds")
	ErrAssetNotFound       = errors.New("asset not found")
	ErrInactiveAsset       = errors.New("asset inactive")
	ErrRebalanceNotNeeded  = errors.New("rebalance not needed")
	ErrPaused              = errors.New("fund paused")
	ErrReentrantCall       = errors.New("reentrant call")
)

// Infrastructure errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrLockHeld      = errors.New("lock already held")
	ErrCacheMiss     = errors.New("cache miss")
	ErrContextDone   = errors.New("context cancelled")
)
