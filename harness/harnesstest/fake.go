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

// Package harnesstest provides an in-memory harness.Session for tests.
package harnesstest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ttbt-io/journeys/harness"
)

// Element is a fake DOM element. Fields may be changed through
// Session.Update while a test runs.
type Element struct {
	Name      string
	Hidden    bool
	Disabled  bool
	Intercept bool // native clicks fail with harness.ErrClickIntercepted
	Stale     bool
	Label     string // returned by Text
	// OnClick runs for native and script clicks, without the session lock.
	OnClick func()

	Value        string
	Clicks       int
	ScriptClicks int

	s *Session
}

var _ harness.Element = (*Element)(nil)

func (e *Element) Describe() string { return e.Name }

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if e.Stale {
		return false, harness.ErrStaleElement
	}
	return !e.Hidden, nil
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if e.Stale {
		return false, harness.ErrStaleElement
	}
	return !e.Disabled, nil
}

func (e *Element) Click(ctx context.Context) error {
	e.s.mu.Lock()
	switch {
	case e.Stale:
		e.s.mu.Unlock()
		return harness.ErrStaleElement
	case e.Intercept:
		e.s.mu.Unlock()
		return harness.ErrClickIntercepted
	}
	e.Clicks++
	fn := e.OnClick
	e.s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if e.Stale {
		return harness.ErrStaleElement
	}
	e.Value += text
	return nil
}

func (e *Element) Text(ctx context.Context) (string, error) {
	return e.Label, nil
}

// Session is a fake harness.Session holding elements keyed by locator.
type Session struct {
	// OnNavigate, if set, is called after the URL changed.
	OnNavigate func(s *Session, url string)
	// FindErr, if set, is returned by every find.
	FindErr error
	// PNG is returned by Screenshot.
	PNG []byte
	// Console is returned by ConsoleErrors.
	Console []string

	mu       sync.Mutex
	url      string
	source   string
	elements map[harness.Locator][]*Element
	finds    []harness.Locator
	scripts  []string
	cookies  map[string]string
	closed   int
	onClose  func()
}

var (
	_ harness.Session       = (*Session)(nil)
	_ harness.Screenshotter = (*Session)(nil)
	_ harness.ConsoleReader = (*Session)(nil)
	_ harness.CookieReader  = (*Session)(nil)
)

// NewSession returns an empty session at about:blank.
func NewSession() *Session {
	return &Session{
		url:      "about:blank",
		elements: make(map[harness.Locator][]*Element),
	}
}

// Add registers elements under loc, after any already there.
func (s *Session) Add(loc harness.Locator, els ...*Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range els {
		e.s = s
	}
	s.elements[loc] = append(s.elements[loc], els...)
}

// Remove drops every element under loc.
func (s *Session) Remove(loc harness.Locator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.elements, loc)
}

// Reset drops every element, as a page load would.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, els := range s.elements {
		for _, e := range els {
			e.Stale = true
		}
	}
	s.elements = make(map[harness.Locator][]*Element)
}

// Update runs fn with the session lock held.
func (s *Session) Update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// SetURL changes the current URL without calling OnNavigate.
func (s *Session) SetURL(u string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = u
}

// SetSource changes what PageSource returns.
func (s *Session) SetSource(src string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
}

// Finds returns every locator passed to FindElement or FindElements.
func (s *Session) Finds() []harness.Locator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]harness.Locator(nil), s.finds...)
}

// Scripts returns the functions passed to ExecuteScript.
func (s *Session) Scripts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scripts...)
}

// Closed returns how many times Close was called.
func (s *Session) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	s.mu.Lock()
	s.url = url
	fn := s.OnNavigate
	s.mu.Unlock()
	if fn != nil {
		fn(s, url)
	}
	return nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source, nil
}

func (s *Session) FindElement(ctx context.Context, loc harness.Locator) (harness.Element, error) {
	els, err := s.find(loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, harness.ErrNoSuchElement
	}
	return els[0], nil
}

func (s *Session) FindElements(ctx context.Context, loc harness.Locator) ([]harness.Element, error) {
	els, err := s.find(loc)
	if err != nil {
		return nil, err
	}
	out := make([]harness.Element, len(els))
	for i, e := range els {
		out[i] = e
	}
	return out, nil
}

func (s *Session) find(loc harness.Locator) ([]*Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds = append(s.finds, loc)
	if s.FindErr != nil {
		return nil, s.FindErr
	}
	return append([]*Element(nil), s.elements[loc]...), nil
}

func (s *Session) ExecuteScript(ctx context.Context, fn string, el harness.Element) error {
	e, ok := el.(*Element)
	if !ok {
		return errors.New("harnesstest: foreign element")
	}
	s.mu.Lock()
	s.scripts = append(s.scripts, fn)
	if e.Stale {
		s.mu.Unlock()
		return harness.ErrStaleElement
	}
	var click func()
	if strings.Contains(fn, ".click()") {
		e.ScriptClicks++
		click = e.OnClick
	}
	s.mu.Unlock()
	if click != nil {
		click()
	}
	return nil
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	if s.PNG == nil {
		return nil, errors.New("harnesstest: no screenshot")
	}
	return s.PNG, nil
}

// SetCookie sets a cookie visible through Cookie.
func (s *Session) SetCookie(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cookies == nil {
		s.cookies = make(map[string]string)
	}
	s.cookies[name] = value
}

func (s *Session) Cookie(ctx context.Context, name string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cookies[name]
	return v, ok, nil
}

func (s *Session) ConsoleErrors() []string {
	return s.Console
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed++
	fn := s.onClose
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// Factory hands out fake sessions and tracks how many are live.
type Factory struct {
	// Setup, if set, prepares each new session.
	Setup func(s *Session)
	// Err, if set, makes every acquisition fail.
	Err error

	mu       sync.Mutex
	sessions []*Session
	live     int
	maxLive  int
}

var _ harness.SessionFactory = (*Factory)(nil)

func (f *Factory) NewSession(ctx context.Context) (harness.Session, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	s := NewSession()
	s.onClose = func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.live--
	}
	if f.Setup != nil {
		f.Setup(s)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, s)
	f.live++
	if f.live > f.maxLive {
		f.maxLive = f.live
	}
	return s, nil
}

// Sessions returns every session created so far.
func (f *Factory) Sessions() []*Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Session(nil), f.sessions...)
}

// Live returns how many sessions are open now.
func (f *Factory) Live() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.live
}

// MaxLive returns the largest number of sessions open at the same time.
func (f *Factory) MaxLive() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.maxLive
}
