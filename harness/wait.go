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
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PollInterval is how often WaitFor re-evaluates a condition.
var PollInterval = 200 * time.Millisecond

// Match is what a satisfied condition produced.
type Match struct {
	Element  Element
	Elements []Element
}

// Condition is a named predicate over session state.
type Condition struct {
	Desc string
	// Check reports whether the condition holds. ErrNoSuchElement and
	// ErrStaleElement mean "not yet".
	Check func(ctx context.Context, s Session) (Match, bool, error)
}

func (c Condition) String() string { return c.Desc }

// WaitFor polls cond until it holds or timeout elapses.
func WaitFor(ctx context.Context, s Session, cond Condition, timeout time.Duration) (Match, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	var last error
	for {
		m, ok, err := cond.Check(timeoutCtx, s)
		switch {
		case err == nil && ok:
			return m, nil
		case err == nil:
		case errors.Is(err, ErrNoSuchElement), errors.Is(err, ErrStaleElement), isNotFound(err):
			last = err
		case timeoutCtx.Err() != nil:
			// The check was interrupted by the deadline.
		default:
			return Match{}, fmt.Errorf("%s: %w", cond, err)
		}

		select {
		case <-ticker.C:
		case <-timeoutCtx.Done():
			if ctx.Err() != nil {
				return Match{}, ctx.Err()
			}
			return Match{}, &WaitTimeoutError{Condition: cond.Desc, Timeout: timeout, Last: last}
		}
	}
}

func isNotFound(err error) bool {
	var nf *LocatorNotFoundError
	return errors.As(err, &nf)
}

// Present holds once an element matching one of locs exists, visible or
// not. Locators are tried in order.
func Present(locs ...Locator) Condition {
	return Condition{
		Desc: "presence of " + describe(locs),
		Check: anyOf(locs, func(ctx context.Context, s Session, loc Locator) (Match, bool, error) {
			el, err := s.FindElement(ctx, loc)
			if err != nil {
				return Match{}, false, err
			}
			return Match{Element: el}, true, nil
		}),
	}
}

// Visible holds once an element matching one of locs exists and is
// displayed.
func Visible(locs ...Locator) Condition {
	return Condition{
		Desc: "visibility of " + describe(locs),
		Check: anyOf(locs, func(ctx context.Context, s Session, loc Locator) (Match, bool, error) {
			el, err := s.FindElement(ctx, loc)
			if err != nil {
				return Match{}, false, err
			}
			ok, err := el.IsDisplayed(ctx)
			if err != nil || !ok {
				return Match{}, false, err
			}
			return Match{Element: el}, true, nil
		}),
	}
}

// AllPresent holds once at least one element matches one of locs. The match
// carries every element of the first locator that matched.
func AllPresent(locs ...Locator) Condition {
	return Condition{
		Desc: "presence of all " + describe(locs),
		Check: anyOf(locs, func(ctx context.Context, s Session, loc Locator) (Match, bool, error) {
			els, err := s.FindElements(ctx, loc)
			if err != nil || len(els) == 0 {
				return Match{}, false, err
			}
			return Match{Element: els[0], Elements: els}, true, nil
		}),
	}
}

// URLContains holds once the current URL contains substr.
func URLContains(substr string) Condition {
	return Condition{
		Desc: fmt.Sprintf("url contains %q", substr),
		Check: func(ctx context.Context, s Session) (Match, bool, error) {
			u, err := s.CurrentURL(ctx)
			if err != nil {
				return Match{}, false, err
			}
			return Match{}, strings.Contains(u, substr), nil
		},
	}
}

// Clickable holds once an element matching one of locs is displayed and
// enabled.
func Clickable(locs ...Locator) Condition {
	return Condition{
		Desc: describe(locs) + " to be clickable",
		Check: anyOf(locs, func(ctx context.Context, s Session, loc Locator) (Match, bool, error) {
			el, err := s.FindElement(ctx, loc)
			if err != nil {
				return Match{}, false, err
			}
			ok, err := clickable(ctx, el)
			if err != nil || !ok {
				return Match{}, false, err
			}
			return Match{Element: el}, true, nil
		}),
	}
}

// ElementClickable holds once the already resolved el is displayed and
// enabled.
func ElementClickable(el Element) Condition {
	return Condition{
		Desc: fmt.Sprintf("%s to be clickable", el.Describe()),
		Check: func(ctx context.Context, _ Session) (Match, bool, error) {
			ok, err := clickable(ctx, el)
			if err != nil || !ok {
				return Match{}, false, err
			}
			return Match{Element: el}, true, nil
		},
	}
}

// Resolvable holds once Resolve succeeds for spec.
func Resolvable(name string, spec LocatorSpec) Condition {
	return Condition{
		Desc: fmt.Sprintf("%s to resolve", name),
		Check: func(ctx context.Context, s Session) (Match, bool, error) {
			el, err := Resolve(ctx, s, spec)
			if err != nil {
				return Match{}, false, err
			}
			return Match{Element: el}, true, nil
		},
	}
}

func clickable(ctx context.Context, el Element) (bool, error) {
	visible, err := el.IsDisplayed(ctx)
	if err != nil || !visible {
		return false, err
	}
	return el.IsEnabled(ctx)
}

// anyOf returns a check that tries each locator in order. A "not yet" error
// moves on to the next locator; any other error stops the check.
func anyOf(locs []Locator, check func(ctx context.Context, s Session, loc Locator) (Match, bool, error)) func(ctx context.Context, s Session) (Match, bool, error) {
	return func(ctx context.Context, s Session) (Match, bool, error) {
		var last error
		for _, loc := range locs {
			m, ok, err := check(ctx, s, loc)
			switch {
			case err == nil && ok:
				return m, true, nil
			case err == nil:
			case errors.Is(err, ErrNoSuchElement), errors.Is(err, ErrStaleElement):
				last = err
			default:
				return Match{}, false, err
			}
		}
		return Match{}, false, last
	}
}

func describe(locs []Locator) string {
	parts := make([]string, len(locs))
	for i, l := range locs {
		parts[i] = l.String()
	}
	return strings.Join(parts, " or ")
}
