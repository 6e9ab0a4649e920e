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

package browser

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/journeys/harness"
)

const closeTimeout = 5 * time.Second

// Session is one browser tab.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   *Options
	once   sync.Once

	mu      sync.Mutex
	console []string
}

var (
	_ harness.Session       = (*Session)(nil)
	_ harness.Screenshotter = (*Session)(nil)
	_ harness.CookieReader  = (*Session)(nil)
	_ harness.ConsoleReader = (*Session)(nil)
)

func (s *Session) setup() []chromedp.Action {
	return []chromedp.Action{
		network.ClearBrowserCookies(),
		chromedp.EmulateViewport(int64(s.opts.Width), int64(s.opts.Height)),
	}
}

// run executes actions on the tab, aborting when ctx is done. Cancelling
// ctx does not close the tab.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	tctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(tctx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classify(err)
	}
	return nil
}

func (s *Session) onEvent(ev any) {
	var msg string
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		if ev.Type != runtime.APITypeError {
			return
		}
		args := make([]string, len(ev.Args))
		for i, arg := range ev.Args {
			if arg.Value != nil {
				args[i] = string(arg.Value)
			} else {
				args[i] = arg.Description
			}
		}
		msg = "console.error: " + strings.Join(args, " ")
	case *runtime.EventExceptionThrown:
		msg = "exception: " + ev.ExceptionDetails.Text
		if ex := ev.ExceptionDetails.Exception; ex != nil && ex.Description != "" {
			msg += " " + ex.Description
		}
	default:
		return
	}
	if s.opts.Debug {
		log.Printf("[browser] %s", msg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.console = append(s.console, msg)
}

func (s *Session) Navigate(ctx context.Context, u string) error {
	actions := []chromedp.Action{chromedp.Navigate(u)}
	if s.opts.DisableAnimations {
		actions = append(actions, DisableCSSAnimations())
	}
	if err := s.run(ctx, actions...); err != nil {
		return fmt.Errorf("navigate %s: %w", u, err)
	}
	return nil
}

func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := s.run(ctx, chromedp.Location(&u)); err != nil {
		return "", err
	}
	return u, nil
}

func (s *Session) PageSource(ctx context.Context) (string, error) {
	var src string
	err := s.run(ctx, chromedp.Evaluate(`document.documentElement ? document.documentElement.outerHTML : ""`, &src))
	return src, err
}

func (s *Session) FindElement(ctx context.Context, loc harness.Locator) (harness.Element, error) {
	els, err := s.FindElements(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, harness.ErrNoSuchElement
	}
	return els[0], nil
}

func (s *Session) FindElements(ctx context.Context, loc harness.Locator) ([]harness.Element, error) {
	sel, opts, err := query(loc)
	if err != nil {
		return nil, err
	}
	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(sel, &nodes, append(opts, chromedp.AtLeast(0))...)); err != nil {
		return nil, fmt.Errorf("query %s: %w", loc, err)
	}
	els := make([]harness.Element, len(nodes))
	for i, n := range nodes {
		els[i] = &Element{s: s, node: n, loc: loc}
	}
	return els, nil
}

func (s *Session) ExecuteScript(ctx context.Context, fn string, el harness.Element) error {
	e, ok := el.(*Element)
	if !ok || e.s != s {
		return fmt.Errorf("element %s does not belong to this session", el.Describe())
	}
	return e.call(ctx, fn, nil)
}

func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

func (s *Session) Cookie(ctx context.Context, name string) (string, bool, error) {
	var cookies []*network.Cookie
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return "", false, err
	}
	for _, c := range cookies {
		if c.Name == name {
			return c.Value, true, nil
		}
	}
	return "", false, nil
}

func (s *Session) ConsoleErrors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.console...)
}

// Close clears the base origin's storage and closes the tab. It is safe to
// call more than once.
func (s *Session) Close() error {
	var err error
	s.once.Do(func() {
		if origin := originOf(s.opts.BaseURL); origin != "" {
			cctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			if cerr := s.run(cctx, storage.ClearDataForOrigin(origin, "all")); cerr != nil {
				log.Printf("[browser] clear storage for %s: %v", origin, cerr)
			}
			cancel()
		}
		err = chromedp.Cancel(s.ctx)
		s.cancel()
	})
	return err
}

func originOf(base string) string {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

// query maps a locator to a chromedp selector.
func query(loc harness.Locator) (string, []chromedp.QueryOption, error) {
	switch loc.By {
	case harness.ByName:
		return fmt.Sprintf(`[name=%q]`, loc.Selector), []chromedp.QueryOption{chromedp.ByQueryAll}, nil
	case harness.ByClass:
		return "." + strings.Join(strings.Fields(loc.Selector), "."), []chromedp.QueryOption{chromedp.ByQueryAll}, nil
	case harness.ByCSS:
		return loc.Selector, []chromedp.QueryOption{chromedp.ByQueryAll}, nil
	case harness.ByXPath:
		return loc.Selector, []chromedp.QueryOption{chromedp.BySearch}, nil
	}
	return "", nil, fmt.Errorf("unsupported locator strategy %q", loc.By)
}

// classify maps DevTools errors about vanished nodes to ErrStaleElement.
func classify(err error) error {
	msg := err.Error()
	for _, s := range []string{
		"No node with given id",
		"Could not find node with given id",
		"Node is detached from document",
		"Cannot find context with specified id",
		"Node with given id does not belong to the document",
	} {
		if strings.Contains(msg, s) {
			return fmt.Errorf("%w: %v", harness.ErrStaleElement, err)
		}
	}
	return err
}
