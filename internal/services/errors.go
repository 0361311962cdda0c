package services

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrValidation marks input the caller must fix. The wrapped core error
// names the field.
var ErrValidation = errors.New("validation failed")

// storageTimeout bounds every storage call made by a service.
const storageTimeout = 5 * time.Second

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func withStorageTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storageTimeout)
}
