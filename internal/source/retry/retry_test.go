package retry

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/qinghai5060/sealio/internal/errors"
	"github.com/qinghai5060/sealio/internal/mock"
	"github.com/qinghai5060/sealio/internal/source"
	rtest "github.com/qinghai5060/sealio/internal/test"
)

func TestRetryOpen(t *testing.T) {
	TestFastRetries(t)

	attempts := 0
	m := mock.NewSource()
	m.OpenFn = func(_ context.Context) (io.ReadCloser, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("connection reset by peer")
		}
		return io.NopCloser(strings.NewReader("payload")), nil
	}

	src := New(m, time.Minute, nil, nil)

	rd, err := src.Open(context.TODO())
	rtest.OK(t, err)
	buf, err := io.ReadAll(rd)
	rtest.OK(t, err)
	rtest.OK(t, rd.Close())

	rtest.Equals(t, "payload", string(buf))
	rtest.Equals(t, 3, attempts)
}

func TestRetryOpenNotExist(t *testing.T) {
	TestFastRetries(t)

	attempts := 0
	m := mock.NewSource()
	m.OpenFn = func(_ context.Context) (io.ReadCloser, error) {
		attempts++
		return nil, fmt.Errorf("file not found on server: %w", os.ErrNotExist)
	}

	src := New(m, time.Minute, nil, nil)

	_, err := src.Open(context.TODO())
	rtest.Assert(t, err != nil, "expected error")
	rtest.Assert(t, errors.Is(err, os.ErrNotExist), "expected os.ErrNotExist, got %v", err)

	// a missing file is permanent, it must not be retried
	rtest.Equals(t, 1, attempts)
}

func TestRetryCanceled(t *testing.T) {
	TestFastRetries(t)

	attempts := 0
	m := mock.NewSource()
	m.OpenFn = func(_ context.Context) (io.ReadCloser, error) {
		attempts++
		return nil, errors.New("transient")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := New(m, time.Minute, nil, nil)

	_, err := src.Open(ctx)
	rtest.Assert(t, errors.Is(err, context.Canceled), "expected context.Canceled, got %v", err)
	rtest.Equals(t, 0, attempts)
}

func TestRetryReportAndSuccess(t *testing.T) {
	TestFastRetries(t)

	attempts := 0
	m := mock.NewSource()
	m.StatFn = func(_ context.Context) (source.FileInfo, error) {
		attempts++
		if attempts < 3 {
			return source.FileInfo{}, errors.New("transient")
		}
		return source.FileInfo{Size: 23, Name: "file.bin"}, nil
	}

	reports := 0
	var successRetries int
	src := New(m, time.Minute,
		func(msg string, err error, d time.Duration) {
			reports++
			if !strings.HasPrefix(msg, "Stat(") {
				t.Errorf("unexpected message %q", msg)
			}
		},
		func(msg string, retries int) {
			successRetries = retries
		})

	fi, err := src.Stat(context.TODO())
	rtest.OK(t, err)
	rtest.Equals(t, int64(23), fi.Size)

	rtest.Equals(t, 3, attempts)
	rtest.Equals(t, 2, reports)
	rtest.Equals(t, 2, successRetries)
}

func TestRetryCreate(t *testing.T) {
	TestFastRetries(t)

	attempts := 0
	m := mock.NewSource()
	m.CreateFn = func(_ context.Context) (io.WriteCloser, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient")
		}
		return nopWriteCloser{io.Discard}, nil
	}

	src := New(m, time.Minute, nil, nil)

	wr, err := src.Create(context.TODO())
	rtest.OK(t, err)
	_, err = wr.Write([]byte("data"))
	rtest.OK(t, err)
	rtest.OK(t, wr.Close())

	rtest.Equals(t, 2, attempts)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
