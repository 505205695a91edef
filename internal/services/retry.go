package services

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"

	"field-dispatch/pkg/telegram"
)

// Retry runs op with exponential backoff until it succeeds, returns a
// permanent error, ctx ends or maxElapsed passes.
func Retry(ctx context.Context, maxElapsed time.Duration, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxElapsedTime = maxElapsed
	return backoff.Retry(op, backoff.WithContext(b, ctx))
}

// permanentUnlessTemporary stops retries for errors that will not go away,
// such as a chat the bot cannot write to.
func permanentUnlessTemporary(err error) error {
	if IsPermanentSendError(err) {
		return backoff.Permanent(err)
	}
	return err
}

// IsPermanentSendError reports whether a telegram send failed for a reason
// retrying cannot fix: no bot token, or a non-temporary Bot API rejection.
func IsPermanentSendError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, telegram.ErrNotConfigured) {
		return true
	}
	var apiErr *telegram.APIError
	return errors.As(err, &apiErr) && !apiErr.Temporary()
}
