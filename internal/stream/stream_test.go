package stream_test

import (
	"fmt"
	"io"
)

// Both payloads contain a byte that is not valid UTF-8.
var (
	testPlaintext = []byte("somethin\x80")
	testAAD       = []byte("aa\x80")
)

// fakeEngine passes bytes through unchanged, standing in for a streaming
// AEAD scheme. It records how it is used.
type fakeEngine struct {
	opened  int
	lastAAD []byte

	openErr error // returned instead of a handle
	readErr error // returned by every handle read
	wrapEOF bool  // deliver exhaustion wrapped instead of bare

	lastHandle *fakeHandle
	lastSink   *fakeSink
}

func (e *fakeEngine) OpenInput(src io.Reader, associatedData []byte) (io.Reader, error) {
	e.opened++
	e.lastAAD = append([]byte(nil), associatedData...)
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.lastHandle = &fakeHandle{src: src, readErr: e.readErr, wrapEOF: e.wrapEOF}
	return e.lastHandle, nil
}

func (e *fakeEngine) OpenOutput(dst io.Writer, associatedData []byte) (io.WriteCloser, error) {
	e.opened++
	e.lastAAD = append([]byte(nil), associatedData...)
	if e.openErr != nil {
		return nil, e.openErr
	}
	e.lastSink = &fakeSink{dst: dst}
	return e.lastSink, nil
}

type fakeHandle struct {
	src     io.Reader
	readErr error
	wrapEOF bool

	reads  int
	closed int
	events *[]string
}

func (h *fakeHandle) Read(p []byte) (int, error) {
	h.reads++
	if h.readErr != nil {
		return 0, h.readErr
	}
	n, err := h.src.Read(p)
	if err == io.EOF && h.wrapEOF {
		err = fmt.Errorf("final segment consumed: %w", io.EOF)
	}
	return n, err
}

func (h *fakeHandle) Close() error {
	h.closed++
	if h.events != nil {
		*h.events = append(*h.events, "handle")
	}
	return nil
}

type fakeSink struct {
	dst      io.Writer
	closeErr error

	flushed int
	closed  int
	events  *[]string
}

func (h *fakeSink) Write(p []byte) (int, error) { return h.dst.Write(p) }

func (h *fakeSink) Flush() error {
	h.flushed++
	return nil
}

func (h *fakeSink) Close() error {
	h.closed++
	if h.events != nil {
		*h.events = append(*h.events, "handle")
	}
	return h.closeErr
}

// inputOpenerFunc and outputOpenerFunc adapt plain functions for tests that
// need one-off handle behavior.
type inputOpenerFunc func(io.Reader, []byte) (io.Reader, error)

func (f inputOpenerFunc) OpenInput(src io.Reader, associatedData []byte) (io.Reader, error) {
	return f(src, associatedData)
}

type outputOpenerFunc func(io.Writer, []byte) (io.WriteCloser, error)

func (f outputOpenerFunc) OpenOutput(dst io.Writer, associatedData []byte) (io.WriteCloser, error) {
	return f(dst, associatedData)
}

// oneByteReader yields a single byte per call, so that short reads and the
// EOF transition are both exercised.
type oneByteReader struct{ data []byte }

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	if len(p) > 1 {
		p = p[:1]
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

// tracedSource counts how often it is closed.
type tracedSource struct {
	io.Reader

	closed int
	events *[]string
}

func (s *tracedSource) Close() error {
	s.closed++
	if s.events != nil {
		*s.events = append(*s.events, "source")
	}
	return nil
}

// deniedSource reports that it cannot be read from, like a handle opened
// for writing only.
type deniedSource struct{ io.Reader }

func (deniedSource) Readable() bool { return false }

// tracedSink counts how often it is closed.
type tracedSink struct {
	io.Writer

	closed int
	events *[]string
}

func (s *tracedSink) Close() error {
	s.closed++
	if s.events != nil {
		*s.events = append(*s.events, "dst")
	}
	return nil
}

// deniedSink reports that it cannot be written to.
type deniedSink struct{ io.Writer }

func (deniedSink) Writable() bool { return false }

// plainSink is a sealing handle without flush support.
type plainSink struct{ io.Writer }

func (plainSink) Close() error { return nil }
