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

// Package journeys holds the BookVerse user journeys: the control table,
// the shared sign-in step and the ten ordered scenarios.
package journeys

import (
	"context"
	"strings"

	"github.com/ttbt-io/journeys/harness"
)

// Credentials used by the invalid login scenario.
const (
	InvalidEmail    = "fake@notexist.com"
	InvalidPassword = "wrongpass"
)

// Suite binds the scenarios to one deployment.
type Suite struct {
	BaseURL  string
	Locators Locators
	// TokenCookie, if set, names the session cookie checked after a valid
	// login.
	TokenCookie string
	Tokens      *TokenVerifier
}

// Scenarios returns the ten journeys in run order. Scenarios 6 to 10 sign in
// with the account registered by scenario 4.
func (st *Suite) Scenarios() []harness.Scenario {
	registered := []int{4}
	return []harness.Scenario{
		{ID: 1, Name: "Redirect", Tags: []string{"nav"}, Run: st.redirect},
		{ID: 2, Name: "Login UI", Tags: []string{"auth", "ui"}, Run: st.loginUI},
		{ID: 3, Name: "Sign Up toggle", Tags: []string{"auth", "ui"}, Run: st.toggle},
		{ID: 4, Name: "Registration", Tags: []string{"auth", "registration"}, Run: st.registration},
		{ID: 5, Name: "Invalid login", Tags: []string{"auth", "negative"}, Run: st.invalidLogin},
		{ID: 6, Name: "Valid login", Tags: []string{"auth", "login"}, DependsOn: registered, Run: st.validLogin},
		{ID: 7, Name: "Navbar", Tags: []string{"clubs", "ui"}, DependsOn: registered, Run: st.navbar},
		{ID: 8, Name: "Clubs load", Tags: []string{"clubs"}, DependsOn: registered, Run: st.clubs},
		{ID: 9, Name: "Club details", Tags: []string{"clubs", "nav"}, DependsOn: registered, Run: st.details},
		{ID: 10, Name: "Logout", Tags: []string{"auth", "logout"}, DependsOn: registered, Run: st.logout},
	}
}

func (st *Suite) url(path string) string {
	return strings.TrimRight(st.BaseURL, "/") + path
}

func (st *Suite) redirect(ctx context.Context, s harness.Session, _ harness.Fixture) harness.Verdict {
	if err := s.Navigate(ctx, st.BaseURL); err != nil {
		return harness.Failed(err)
	}
	if _, err := harness.WaitFor(ctx, s, harness.URLContains("/auth"), harness.ShortTimeout); err != nil {
		return harness.Failed(err)
	}
	return harness.Passed("Redirect to login works")
}

func (st *Suite) loginUI(ctx context.Context, s harness.Session, _ harness.Fixture) harness.Verdict {
	if err := st.openAuth(ctx, s); err != nil {
		return harness.Failed(err)
	}
	if _, err := harness.WaitFor(ctx, s, harness.Present(st.Locators.Email...), harness.LongTimeout); err != nil {
		return harness.Failed(err)
	}
	for _, spec := range []harness.LocatorSpec{st.Locators.Password, st.Locators.Submit} {
		if _, err := harness.FindFirst(ctx, s, spec); err != nil {
			return harness.Failed(err)
		}
	}
	return harness.Passed("Login UI loaded")
}

func (st *Suite) toggle(ctx context.Context, s harness.Session, _ harness.Fixture) harness.Verdict {
	if err := st.openAuth(ctx, s); err != nil {
		return harness.Failed(err)
	}
	if err := st.switchToSignUp(ctx, s); err != nil {
		return harness.Failed(err)
	}
	return harness.Passed("Toggle switched to Sign Up")
}

func (st *Suite) registration(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
	if err := st.openAuth(ctx, s); err != nil {
		return harness.Failed(err)
	}
	if err := st.switchToSignUp(ctx, s); err != nil {
		return harness.Failed(err)
	}
	fields := []struct {
		spec  harness.LocatorSpec
		value string
	}{
		{st.Locators.Username, fx.Username},
		{st.Locators.Email, fx.Email},
		{st.Locators.Password, fx.Password},
	}
	for _, f := range fields {
		if err := harness.Type(ctx, s, f.spec, f.value); err != nil {
			return harness.Failed(err)
		}
	}
	if err := st.submit(ctx, s); err != nil {
		return harness.Failed(err)
	}
	if _, err := harness.WaitFor(ctx, s, harness.URLContains("/clubs"), harness.LongTimeout); err != nil {
		return harness.Failed(err)
	}
	return harness.Passed("Registered %s", fx.Username)
}

func (st *Suite) invalidLogin(ctx context.Context, s harness.Session, _ harness.Fixture) harness.Verdict {
	if err := st.signIn(ctx, s, InvalidEmail, InvalidPassword, harness.LongTimeout); err != nil {
		return harness.Failed(err)
	}
	if _, err := harness.WaitFor(ctx, s, harness.Visible(st.Locators.ErrorMessage...), harness.ShortTimeout); err != nil {
		return harness.Failed(err)
	}
	u, err := s.CurrentURL(ctx)
	if err != nil {
		return harness.Failed(err)
	}
	if strings.Contains(u, "/clubs") {
		return harness.Failed(harness.Assertf("invalid credentials navigated to %s", u))
	}
	return harness.Passed("Error message shown")
}

func (st *Suite) validLogin(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
	if err := st.signInAs(ctx, s, fx, harness.LongTimeout, harness.LongTimeout); err != nil {
		return harness.Failed(err)
	}
	if st.TokenCookie == "" {
		return harness.Passed("Login successful")
	}
	if err := st.checkToken(ctx, s, fx); err != nil {
		return harness.Failed(err)
	}
	return harness.Passed("Login successful, %s token verified", st.TokenCookie)
}

func (st *Suite) navbar(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
	if err := st.signInAs(ctx, s, fx, harness.ShortTimeout, harness.ShortTimeout); err != nil {
		return harness.Failed(err)
	}
	if _, err := harness.WaitFor(ctx, s, harness.Visible(st.Locators.Navbar...), harness.ShortTimeout); err != nil {
		return harness.Failed(err)
	}
	return harness.Passed("Navbar visible")
}

func (st *Suite) clubs(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
	if err := st.signInAs(ctx, s, fx, harness.ShortTimeout, harness.LongTimeout); err != nil {
		return harness.Failed(err)
	}
	m, err := harness.WaitFor(ctx, s, harness.AllPresent(st.Locators.ClubCard...), harness.LongTimeout)
	if err != nil {
		return harness.Failed(err)
	}
	if len(m.Elements) == 0 {
		return harness.Failed(harness.Assertf("no club cards"))
	}
	return harness.Passed("Found %d clubs", len(m.Elements))
}

func (st *Suite) details(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
	if err := st.signInAs(ctx, s, fx, harness.ShortTimeout, harness.ShortTimeout); err != nil {
		return harness.Failed(err)
	}
	m, err := harness.WaitFor(ctx, s, harness.AllPresent(st.Locators.ViewButton...), harness.LongTimeout)
	if err != nil {
		return harness.Failed(err)
	}
	if err := harness.Click(ctx, s, m.Elements[0]); err != nil {
		return harness.Failed(err)
	}
	if _, err := harness.WaitFor(ctx, s, harness.Present(st.Locators.BackButton...), harness.ShortTimeout); err != nil {
		return harness.Failed(err)
	}
	return harness.Passed("Club details loaded")
}

func (st *Suite) logout(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
	if err := st.signInAs(ctx, s, fx, harness.ShortTimeout, harness.ShortTimeout); err != nil {
		return harness.Failed(err)
	}
	m, err := harness.WaitFor(ctx, s, harness.Clickable(st.Locators.Logout...), harness.LongTimeout)
	if err != nil {
		return harness.Failed(err)
	}
	if err := harness.Click(ctx, s, m.Element); err != nil {
		return harness.Failed(err)
	}
	if _, err := harness.WaitFor(ctx, s, harness.URLContains("/auth"), harness.ShortTimeout); err != nil {
		return harness.Failed(err)
	}
	return harness.Passed("Logout successful")
}
