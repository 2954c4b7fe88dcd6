// Package retry wraps a source so that opening it survives short network
// outages.
package retry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/qinghai5060/sealio/internal/debug"
	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/source"
)

// Source retries failed open operations on an underlying source with an
// exponential backoff. The streams a source hands out are not retried: once
// a reader or writer was opened, errors from it surface immediately.
type Source struct {
	source.Source
	MaxElapsedTime time.Duration
	Report         func(string, error, time.Duration)
	Success        func(string, int)
}

// ensure statically that *Source implements source.Source.
var _ source.Source = &Source{}

// New wraps src with a source that retries failed operations after a
// backoff. report is called with a description and the error, if one
// occurred. success is called with the number of retries before a
// successful operation (it is not called if it succeeded on the first try).
func New(src source.Source, maxElapsedTime time.Duration, report func(string, error, time.Duration), success func(string, int)) *Source {
	return &Source{
		Source:         src,
		MaxElapsedTime: maxElapsedTime,
		Report:         report,
		Success:        success,
	}
}

// retryNotifyErrorWithSuccess is an extension of backoff.RetryNotify with
// notification of success after an error. success is NOT notified on the
// first run of operation (only after an error).
func retryNotifyErrorWithSuccess(operation backoff.Operation, b backoff.BackOffContext, notify backoff.Notify, success func(retries int)) error {
	var operationWrapper backoff.Operation
	if success == nil {
		operationWrapper = operation
	} else {
		retries := 0
		operationWrapper = func() error {
			err := operation()
			if err != nil {
				retries++
			} else if retries > 0 {
				success(retries)
			}
			return err
		}
	}
	err := backoff.RetryNotify(operationWrapper, b, notify)

	if err != nil && notify != nil && b.Context().Err() == nil {
		// log final error, unless the context was canceled
		notify(err, -1)
	}
	return err
}

var fastRetries = false

func (s *Source) retry(ctx context.Context, msg string, f func() error) error {
	// Don't do anything when called with an already cancelled context.
	// There would be no retries in that case either, so be consistent and
	// abort always.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = s.MaxElapsedTime
	bo.InitialInterval = 1 * time.Second
	bo.Multiplier = 2
	if fastRetries {
		// speed up integration tests
		bo.InitialInterval = 1 * time.Millisecond
		maxElapsedTime := 200 * time.Millisecond
		if bo.MaxElapsedTime > maxElapsedTime {
			bo.MaxElapsedTime = maxElapsedTime
		}
	}

	err := retryNotifyErrorWithSuccess(
		func() error {
			err := f()
			// a missing file cannot be fixed by retrying
			if err != nil && errors.Is(err, os.ErrNotExist) {
				return backoff.Permanent(err)
			}
			return err
		},
		backoff.WithContext(bo, ctx),
		func(err error, d time.Duration) {
			if s.Report != nil {
				s.Report(msg, err, d)
			}
			debug.Log("%v failed: %v, retrying after %v", msg, err, d)
		},
		func(retries int) {
			if s.Success != nil {
				s.Success(msg, retries)
			}
		},
	)
	return err
}

// Open opens the file for reading, retrying on transient errors.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	var rd io.ReadCloser
	err := s.retry(ctx, fmt.Sprintf("Open(%v)", s.Location()), func() error {
		var err error
		rd, err = s.Source.Open(ctx)
		return err
	})
	return rd, err
}

// Create opens the file for writing, retrying on transient errors.
func (s *Source) Create(ctx context.Context) (io.WriteCloser, error) {
	var wr io.WriteCloser
	err := s.retry(ctx, fmt.Sprintf("Create(%v)", s.Location()), func() error {
		var err error
		wr, err = s.Source.Create(ctx)
		return err
	})
	return wr, err
}

// Stat returns information about the file, retrying on transient errors.
func (s *Source) Stat(ctx context.Context) (source.FileInfo, error) {
	var fi source.FileInfo
	err := s.retry(ctx, fmt.Sprintf("Stat(%v)", s.Location()), func() error {
		var err error
		fi, err = s.Source.Stat(ctx)
		return err
	})
	return fi, err
}
