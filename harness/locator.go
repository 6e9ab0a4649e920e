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
)

// Strategy is a method of finding a DOM element.
type Strategy string

const (
	ByName  Strategy = "name"  // exact name attribute
	ByClass Strategy = "class" // class name
	ByCSS   Strategy = "css"   // CSS selector
	ByXPath Strategy = "xpath" // XPath expression, usually text matching
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case ByName, ByClass, ByCSS, ByXPath:
		return true
	}
	return false
}

// Locator is one (strategy, selector) pair.
type Locator struct {
	By       Strategy `json:"by" yaml:"by"`
	Selector string   `json:"selector" yaml:"selector"`
}

func (l Locator) String() string {
	return fmt.Sprintf("%s=%s", l.By, l.Selector)
}

// Name returns a Locator matching the name attribute.
func Name(v string) Locator { return Locator{By: ByName, Selector: v} }

// Class returns a Locator matching a class name.
func Class(v string) Locator { return Locator{By: ByClass, Selector: v} }

// CSS returns a Locator for a CSS selector.
func CSS(v string) Locator { return Locator{By: ByCSS, Selector: v} }

// XPath returns a Locator for an XPath expression.
func XPath(v string) Locator { return Locator{By: ByXPath, Selector: v} }

// LocatorSpec is the ordered list of locators for one logical control.
// Earlier entries are preferred.
type LocatorSpec []Locator

// Validate checks that the spec is non-empty and uses known strategies.
func (spec LocatorSpec) Validate() error {
	if len(spec) == 0 {
		return errors.New("empty locator spec")
	}
	for i, l := range spec {
		if !l.By.Valid() {
			return fmt.Errorf("locator %d: unknown strategy %q", i, l.By)
		}
		if l.Selector == "" {
			return fmt.Errorf("locator %d: empty selector", i)
		}
	}
	return nil
}

// Resolve returns the first element, in spec order, that is found and
// displayed. Locators after the first match are not evaluated. It does not
// wait; combine it with WaitFor and Resolvable for that.
func Resolve(ctx context.Context, s Session, spec LocatorSpec) (Element, error) {
	for _, loc := range spec {
		el, err := s.FindElement(ctx, loc)
		if errors.Is(err, ErrNoSuchElement) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", loc, err)
		}
		visible, err := el.IsDisplayed(ctx)
		if err != nil {
			if errors.Is(err, ErrStaleElement) {
				continue
			}
			return nil, fmt.Errorf("visibility of %s: %w", loc, err)
		}
		if visible {
			return el, nil
		}
	}
	return nil, &LocatorNotFoundError{Tried: spec}
}

// FindFirst returns the element of the first locator in spec that matches
// anything, displayed or not.
func FindFirst(ctx context.Context, s Session, spec LocatorSpec) (Element, error) {
	for _, loc := range spec {
		el, err := s.FindElement(ctx, loc)
		if errors.Is(err, ErrNoSuchElement) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", loc, err)
		}
		return el, nil
	}
	return nil, &LocatorNotFoundError{Tried: spec}
}
