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

// Package browser implements harness sessions on top of a Chrome DevTools
// connection.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/journeys/harness"
)

var defaultExecCandidates = []string{
	"/headless-shell/headless-shell",
	"/usr/bin/headless-shell",
	"/usr/bin/chromium",
	"/usr/bin/chromium-browser",
	"/usr/bin/google-chrome",
}

// Options configures how browsers are reached.
type Options struct {
	// RemoteURL is the DevTools endpoint of a running browser, e.g.
	// ws://127.0.0.1:9222. When empty a local browser is launched.
	RemoteURL string
	// ExecPath overrides the local browser binary.
	ExecPath string
	Headless bool
	Width    int
	Height   int
	// BaseURL is the origin whose storage is cleared when a session closes.
	BaseURL string
	// DisableAnimations turns off CSS transitions after each navigation.
	DisableAnimations bool
	Debug             bool
}

// Browser hands out one isolated tab per session.
type Browser struct {
	opts     Options
	allocCtx context.Context
	cancel   context.CancelFunc
}

var _ harness.SessionFactory = (*Browser)(nil)

// New sets up the allocator. No browser is contacted until the first
// session is opened.
func New(ctx context.Context, opts Options) (*Browser, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = 1920, 1080
	}
	b := &Browser{opts: opts}
	if opts.RemoteURL != "" {
		b.allocCtx, b.cancel = chromedp.NewRemoteAllocator(ctx, opts.RemoteURL)
		return b, nil
	}
	execPath, err := resolveExecPath(opts.ExecPath)
	if err != nil {
		return nil, err
	}
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(execPath))
	}
	b.allocCtx, b.cancel = chromedp.NewExecAllocator(ctx, allocOpts...)
	return b, nil
}

// Close shuts down the allocator and any browser it started.
func (b *Browser) Close() {
	b.cancel()
}

// NewSession opens a fresh tab with cleared cookies.
func (b *Browser) NewSession(ctx context.Context) (harness.Session, error) {
	ctxOpts := []chromedp.ContextOption{chromedp.WithErrorf(log.Printf)}
	if b.opts.Debug {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(log.Printf))
	}
	tabCtx, cancel := chromedp.NewContext(b.allocCtx, ctxOpts...)
	s := &Session{
		ctx:    tabCtx,
		cancel: cancel,
		opts:   &b.opts,
	}
	chromedp.ListenTarget(tabCtx, s.onEvent)

	// The first Run allocates the tab and must use the tab context itself.
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx, s.setup()...)
	stop()
	if err != nil {
		cancel()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return s, nil
}

func resolveExecPath(requested string) (string, error) {
	candidates := make([]string, 0, len(defaultExecCandidates)+1)
	if path := strings.TrimSpace(requested); path != "" {
		candidates = append(candidates, path)
	}
	candidates = append(candidates, defaultExecCandidates...)

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}
	if requested == "" {
		// Let chromedp search $PATH.
		return "", nil
	}
	return "", errors.New("browser: could not find a Chrome binary; tried " + strings.Join(candidates, ", "))
}
