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

package journeys

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/ttbt-io/journeys/harness"
	"gopkg.in/yaml.v3"
)

// Locators names every control the scenarios touch. Each entry is an ordered
// list of fallbacks.
type Locators struct {
	Email        harness.LocatorSpec `yaml:"email"`
	Password     harness.LocatorSpec `yaml:"password"`
	Username     harness.LocatorSpec `yaml:"username"`
	Submit       harness.LocatorSpec `yaml:"submit"`
	SignUpToggle harness.LocatorSpec `yaml:"signUpToggle"`
	ErrorMessage harness.LocatorSpec `yaml:"errorMessage"`
	Navbar       harness.LocatorSpec `yaml:"navbar"`
	ClubCard     harness.LocatorSpec `yaml:"clubCard"`
	ViewButton   harness.LocatorSpec `yaml:"viewButton"`
	BackButton   harness.LocatorSpec `yaml:"backButton"`
	Logout       harness.LocatorSpec `yaml:"logout"`
}

// DefaultLocators returns the BookVerse controls.
func DefaultLocators() Locators {
	return Locators{
		Email:    harness.LocatorSpec{harness.Name("email")},
		Password: harness.LocatorSpec{harness.Name("password")},
		Username: harness.LocatorSpec{harness.Name("username")},
		Submit: harness.LocatorSpec{
			harness.CSS("button[type='submit']"),
			harness.Class("submit-button"),
		},
		SignUpToggle: harness.LocatorSpec{
			harness.Class("switch-button"),
			harness.CSS(".switch-mode span"),
			harness.CSS(".switch-mode button"),
			harness.CSS(".toggle-text span"),
			harness.XPath("//span[contains(text(), 'Sign Up')]"),
			harness.XPath("//button[contains(text(), 'Sign Up')]"),
			harness.XPath("//a[contains(text(), 'Sign Up')]"),
		},
		ErrorMessage: harness.LocatorSpec{harness.Class("error-message")},
		Navbar:       harness.LocatorSpec{harness.Class("navbar")},
		ClubCard:     harness.LocatorSpec{harness.Class("club-card")},
		ViewButton:   harness.LocatorSpec{harness.Class("view-button")},
		BackButton:   harness.LocatorSpec{harness.Class("back-button")},
		Logout:       harness.LocatorSpec{harness.XPath("//button[contains(text(), 'Log Out')]")},
	}
}

// LoadLocators reads overrides from a YAML file on top of the defaults.
// Controls missing from the file keep their default fallbacks; unknown keys
// are an error. An empty filename returns the defaults.
func LoadLocators(filename string) (Locators, error) {
	if filename == "" {
		return DefaultLocators(), nil
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return Locators{}, err
	}
	loc := DefaultLocators()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&loc); err != nil && !errors.Is(err, io.EOF) {
		return Locators{}, fmt.Errorf("parsing %s: %w", filename, err)
	}
	if err := loc.Validate(); err != nil {
		return Locators{}, fmt.Errorf("%s: %w", filename, err)
	}
	return loc, nil
}

// Validate checks every control has at least one well formed locator.
func (l Locators) Validate() error {
	v := reflect.ValueOf(l)
	t := v.Type()
	for i := range t.NumField() {
		spec := v.Field(i).Interface().(harness.LocatorSpec)
		if err := spec.Validate(); err != nil {
			return fmt.Errorf("%s: %w", t.Field(i).Tag.Get("yaml"), err)
		}
	}
	return nil
}
