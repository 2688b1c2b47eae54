package repository

import (
	"context"
	"time"
)

// RateLimitInfo describes the state of a fixed counting window
type RateLimitInfo struct {
	Key          string
	RequestCount int64
	ResetIn      time.Duration
}

// RateLimitRepository counts requests per key inside a fixed window
type RateLimitRepository interface {
	// Hit records one request for key and returns the window state after it
	Hit(ctx context.Context, key string, window time.Duration) (*RateLimitInfo, error)
}
