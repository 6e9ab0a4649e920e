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
	"log"
)

// ScriptClick is the function ExecuteScript runs for the fallback click.
const ScriptClick = `function() { this.click(); }`

// Click clicks el. When el does not become clickable within
// ClickableTimeout, or the native click is intercepted by an overlapping
// element, it clicks through script instead.
func Click(ctx context.Context, s Session, el Element) error {
	var blocked error
	if _, err := WaitFor(ctx, s, ElementClickable(el), ClickableTimeout); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		blocked = err
	} else if err := el.Click(ctx); err != nil {
		if !errors.Is(err, ErrClickIntercepted) {
			return fmt.Errorf("click %s: %w", el.Describe(), err)
		}
		blocked = err
	} else {
		return nil
	}

	log.Printf("[click] %v; using script click", &InteractionBlockedError{Element: el.Describe(), Cause: blocked})
	if err := s.ExecuteScript(ctx, ScriptClick, el); err != nil {
		return fmt.Errorf("script click %s: %w", el.Describe(), err)
	}
	return nil
}

// Type resolves spec and sends text to the element.
func Type(ctx context.Context, s Session, spec LocatorSpec, text string) error {
	el, err := Resolve(ctx, s, spec)
	if err != nil {
		return err
	}
	if err := el.SendKeys(ctx, text); err != nil {
		return fmt.Errorf("send keys to %s: %w", el.Describe(), err)
	}
	return nil
}
