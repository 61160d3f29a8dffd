package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"
)

// Detector names, matching the fusion component names.
const (
	DetectorOCR       = "ocr"
	DetectorSignature = "signature"
	DetectorPhoto     = "photo"
	DetectorCheckbox  = "checkbox"
	DetectorFusion    = "fusion"
)

// Detector produces one kind of fusion input from a page image.
type Detector[T any] interface {
	Detect(ctx context.Context, img image.Image) (*T, error)
}

// DetectorFunc adapts a function to a Detector.
type DetectorFunc[T any] func(ctx context.Context, img image.Image) (*T, error)

// Detect calls f.
func (f DetectorFunc[T]) Detect(ctx context.Context, img image.Image) (*T, error) {
	return f(ctx, img)
}

// DetectorError is a pipeline failure attributed to one detector. It is
// reported next to, never inside, the fusion anomalies.
type DetectorError struct {
	Detector string `json:"detector"`
	Message  string `json:"message"`
}

func (e *DetectorError) Error() string {
	return e.Message
}

// Result is the outcome of one detector run: either a value or an error.
type Result[T any] struct {
	Value *T
	Err   *DetectorError
}

// OK reports whether the detector produced a value.
func (r Result[T]) OK() bool {
	return r.Err == nil && r.Value != nil
}

type outcome[T any] struct {
	value *T
	err   error
	panic any
}

// runDetector runs d under timeout and converts every failure mode into a
// DetectorError. A detector that overruns its timeout is abandoned; its
// goroutine finishes in the background and its result is discarded.
func runDetector[T any](ctx context.Context, name string, d Detector[T], img image.Image, timeout time.Duration) Result[T] {
	if d == nil {
		return failed[T](name, "%s module not configured", name)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{panic: r}
			}
		}()
		v, err := d.Detect(ctx, img)
		done <- outcome[T]{value: v, err: err}
	}()

	select {
	case o := <-done:
		switch {
		case o.panic != nil:
			return failed[T](name, "%s module crashed: %v", name, o.panic)
		case errors.Is(o.err, context.DeadlineExceeded):
			return timedOut[T](name, timeout)
		case o.err != nil:
			return failed[T](name, "%s module failed: %v", name, o.err)
		case o.value == nil:
			return failed[T](name, "%s module returned no result", name)
		}
		return Result[T]{Value: o.value}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return timedOut[T](name, timeout)
		}
		return failed[T](name, "%s module cancelled: %v", name, ctx.Err())
	}
}

func timedOut[T any](name string, timeout time.Duration) Result[T] {
	if timeout <= 0 {
		return failed[T](name, "%s module timed out", name)
	}
	return failed[T](name, "%s module timed out after %s", name, timeout)
}

func failed[T any](name, format string, args ...any) Result[T] {
	return Result[T]{Err: &DetectorError{Detector: name, Message: fmt.Sprintf(format, args...)}}
}
