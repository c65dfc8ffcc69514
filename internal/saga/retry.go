package saga

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	interfaces "github.com/sheikh-saqib/transfer-saga/internal/interfaces"
)

// Infra calls (record-store writes, log appends) are wrapped in a bounded
// exponential backoff. Exhausting the retries surfaces the error to the
// workflow, which then dead-letters the command.

const maxRetries = 3

type backoffPolicy = backoff.BackOff

func defaultBackoff() backoffPolicy {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	return backoff.WithMaxRetries(bo, maxRetries)
}

func (o *Orchestrator) withRetry(ctx context.Context, op func() error) error {
	return backoff.Retry(op, backoff.WithContext(o.newBackoff(), ctx))
}

// permanentStoreErr marks record-store outcomes that no retry can change so
// the backoff gives up on the first attempt. The error surfaces unwrapped.
func permanentStoreErr(err error) error {
	if errors.Is(err, interfaces.ErrNotFound) || errors.Is(err, interfaces.ErrAlreadyExists) {
		return backoff.Permanent(err)
	}
	return err
}
