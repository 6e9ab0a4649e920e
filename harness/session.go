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
	"log"
)

// Session is one controlled browser instance and its current page.
//
// FindElement returns ErrNoSuchElement when nothing matches. Element methods
// return ErrStaleElement once the element left the document.
type Session interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)
	FindElement(ctx context.Context, loc Locator) (Element, error)
	FindElements(ctx context.Context, loc Locator) ([]Element, error)
	// ExecuteScript calls the JavaScript function fn with this bound to el.
	ExecuteScript(ctx context.Context, fn string, el Element) error
	Close() error
}

// Element is a handle to a DOM element found in a Session.
type Element interface {
	// Describe returns a short human readable name, usually the locator.
	Describe() string
	IsDisplayed(ctx context.Context) (bool, error)
	IsEnabled(ctx context.Context) (bool, error)
	// Click dispatches a native click. It returns ErrClickIntercepted when
	// another element would receive it.
	Click(ctx context.Context) error
	SendKeys(ctx context.Context, text string) error
	Text(ctx context.Context) (string, error)
}

// Screenshotter is implemented by sessions that can capture the viewport.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}

// CookieReader is implemented by sessions that expose browser cookies.
type CookieReader interface {
	Cookie(ctx context.Context, name string) (string, bool, error)
}

// ConsoleReader is implemented by sessions that record JS console errors.
type ConsoleReader interface {
	ConsoleErrors() []string
}

// SessionFactory creates a new, isolated Session.
type SessionFactory interface {
	NewSession(ctx context.Context) (Session, error)
}

// SessionFactoryFunc adapts a function to SessionFactory.
type SessionFactoryFunc func(ctx context.Context) (Session, error)

func (f SessionFactoryFunc) NewSession(ctx context.Context) (Session, error) {
	return f(ctx)
}

// WithSession acquires a session, passes it to fn and closes it exactly once
// on every exit path, including a panic in fn.
func WithSession(ctx context.Context, factory SessionFactory, fn func(Session) error) (err error) {
	s, err := factory.NewSession(ctx)
	if err != nil {
		return &SessionUnavailableError{Cause: err}
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Printf("[session] close: %v", cerr)
			if err == nil {
				err = cerr
			} else {
				err = errors.Join(err, cerr)
			}
		}
	}()
	return fn(s)
}
