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

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ttbt-io/journeys/harness"
)

const (
	visibleJS = `function() {
		if (!this.isConnected) return false;
		const style = window.getComputedStyle(this);
		return this.offsetHeight !== 0 && style.display !== 'none' && style.visibility !== 'hidden' && style.opacity !== '0';
	}`

	enabledJS = `function() { return !this.disabled; }`

	textJS = `function() { return this.innerText || this.textContent || ''; }`

	// hitTestJS returns "" when a click at the element's center would land
	// on it, or a description of the element on top otherwise.
	hitTestJS = `function() {
		const r = this.getBoundingClientRect();
		const top = document.elementFromPoint(r.left + r.width / 2, r.top + r.height / 2);
		if (!top || top === this || this.contains(top)) return '';
		let desc = top.tagName.toLowerCase();
		if (top.id) desc += '#' + top.id;
		if (typeof top.className === 'string' && top.className.trim()) desc += '.' + top.className.trim().split(/\s+/).join('.');
		return desc;
	}`
)

// Element is a DOM node found in a Session.
type Element struct {
	s    *Session
	node *cdp.Node
	loc  harness.Locator
}

var _ harness.Element = (*Element)(nil)

func (e *Element) Describe() string {
	return fmt.Sprintf("<%s> %s", e.node.LocalName, e.loc)
}

func (e *Element) call(ctx context.Context, fn string, res any) error {
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return callOnNode(ctx, e.node, fn, res)
	}))
}

// callOnNode runs fn with this bound to node.
func callOnNode(ctx context.Context, node *cdp.Node, fn string, res any) error {
	obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
	if err != nil {
		return err
	}
	defer runtime.ReleaseObject(obj.ObjectID).Do(ctx)
	return chromedp.CallFunctionOn(fn, res, withObject(obj.ObjectID)).Do(ctx)
}

func withObject(id runtime.RemoteObjectID) func(*runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
	return func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
		return p.WithObjectID(id)
	}
}

func (e *Element) IsDisplayed(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, visibleJS, &ok)
	return ok, err
}

func (e *Element) IsEnabled(ctx context.Context) (bool, error) {
	var ok bool
	err := e.call(ctx, enabledJS, &ok)
	return ok, err
}

// Click scrolls the element into view and dispatches a mouse click at its
// center, unless another element covers that point.
func (e *Element) Click(ctx context.Context) error {
	var top string
	return e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(e.node.NodeID).Do(ctx); err != nil {
			return err
		}
		if err := callOnNode(ctx, e.node, hitTestJS, &top); err != nil {
			return err
		}
		if top != "" {
			return fmt.Errorf("%w: %s would receive the click", harness.ErrClickIntercepted, top)
		}
		return chromedp.MouseClickNode(e.node).Do(ctx)
	}))
}

func (e *Element) SendKeys(ctx context.Context, text string) error {
	return e.s.run(ctx, chromedp.SendKeys([]cdp.NodeID{e.node.NodeID}, text, chromedp.ByNodeID))
}

func (e *Element) Text(ctx context.Context) (string, error) {
	var text string
	err := e.call(ctx, textJS, &text)
	return text, err
}
