// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package harness

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Errors reported by Session and Element implementations.
var (
	ErrNoSuchElement    = errors.New("no such element")
	ErrStaleElement     = errors.New("stale element")
	ErrClickIntercepted = errors.New("click intercepted")
)

// Error kinds recorded in a Result.
const (
	KindLocatorNotFound    = "locator-not-found"
	KindWaitTimeout        = "wait-timeout"
	KindAssertionFailed    = "assertion-failed"
	KindSessionUnavailable = "session-unavailable"
	KindSkipped            = "skipped"
	KindPanic              = "panic"
	KindError              = "error"
)

// LocatorNotFoundError is returned by Resolve when no locator in the spec
// matched a visible element.
type LocatorNotFoundError struct {
	Tried LocatorSpec
}

func (e *LocatorNotFoundError) Error() string {
	tried := make([]string, len(e.Tried))
	for i, l := range e.Tried {
		tried[i] = l.String()
	}
	return fmt.Sprintf("no visible element for any of %d locators: [%s]", len(e.Tried), strings.Join(tried, ", "))
}

// WaitTimeoutError is returned by WaitFor when the condition did not hold
// before the timeout.
type WaitTimeoutError struct {
	Condition string
	Timeout   time.Duration
	// Last is the last check error observed while polling, if any.
	Last error
}

func (e *WaitTimeoutError) Error() string {
	if e.Last != nil {
		return fmt.Sprintf("wait timeout after %s: %s (last: %v)", e.Timeout, e.Condition, e.Last)
	}
	return fmt.Sprintf("wait timeout after %s: %s", e.Timeout, e.Condition)
}

func (e *WaitTimeoutError) Unwrap() error { return e.Last }

// InteractionBlockedError describes a native click that could not be
// delivered. Click recovers from it with a script click; it is only logged.
type InteractionBlockedError struct {
	Element string
	Cause   error
}

func (e *InteractionBlockedError) Error() string {
	return fmt.Sprintf("interaction blocked on %s: %v", e.Element, e.Cause)
}

func (e *InteractionBlockedError) Unwrap() error { return e.Cause }

// AssertionError is an explicit postcondition that did not hold.
type AssertionError struct {
	Msg string
}

func (e *AssertionError) Error() string { return "assertion failed: " + e.Msg }

// Assertf returns an *AssertionError with a formatted message.
func Assertf(format string, args ...any) error {
	return &AssertionError{Msg: fmt.Sprintf(format, args...)}
}

// SessionUnavailableError means no automation session could be acquired.
type SessionUnavailableError struct {
	Cause error
}

func (e *SessionUnavailableError) Error() string {
	return fmt.Sprintf("session unavailable: %v", e.Cause)
}

func (e *SessionUnavailableError) Unwrap() error { return e.Cause }

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	var (
		notFound    *LocatorNotFoundError
		timeout     *WaitTimeoutError
		assertion   *AssertionError
		unavailable *SessionUnavailableError
		panicked    *panicError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &unavailable):
		return KindSessionUnavailable
	case errors.As(err, &timeout):
		return KindWaitTimeout
	case errors.As(err, &notFound):
		return KindLocatorNotFound
	case errors.As(err, &assertion):
		return KindAssertionFailed
	case errors.As(err, &panicked):
		return KindPanic
	default:
		return KindError
	}
}

type panicError struct {
	value any
}

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.value) }
