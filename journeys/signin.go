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
	"context"
	"errors"
	"time"

	"github.com/ttbt-io/journeys/harness"
)

func (st *Suite) openAuth(ctx context.Context, s harness.Session) error {
	return s.Navigate(ctx, st.url("/auth"))
}

// switchToSignUp flips the auth form into sign-up mode and waits for the
// username input.
func (st *Suite) switchToSignUp(ctx context.Context, s harness.Session) error {
	m, err := harness.WaitFor(ctx, s, harness.Resolvable("sign up toggle", st.Locators.SignUpToggle), harness.LongTimeout)
	if err != nil {
		return err
	}
	if err := harness.Click(ctx, s, m.Element); err != nil {
		return err
	}
	_, err = harness.WaitFor(ctx, s, harness.Visible(st.Locators.Username...), harness.ShortTimeout)
	return err
}

func (st *Suite) submit(ctx context.Context, s harness.Session) error {
	el, err := harness.FindFirst(ctx, s, st.Locators.Submit)
	if err != nil {
		return err
	}
	return harness.Click(ctx, s, el)
}

// signIn opens /auth, waits up to formTimeout for the form and submits the
// credentials. It does not wait for the outcome.
func (st *Suite) signIn(ctx context.Context, s harness.Session, email, password string, formTimeout time.Duration) error {
	if err := st.openAuth(ctx, s); err != nil {
		return err
	}
	if _, err := harness.WaitFor(ctx, s, harness.Present(st.Locators.Email...), formTimeout); err != nil {
		return err
	}
	if err := harness.Type(ctx, s, st.Locators.Email, email); err != nil {
		return err
	}
	if err := harness.Type(ctx, s, st.Locators.Password, password); err != nil {
		return err
	}
	return st.submit(ctx, s)
}

// signInAs signs in with the fixture account and waits for /clubs.
func (st *Suite) signInAs(ctx context.Context, s harness.Session, fx harness.Fixture, formTimeout, clubsTimeout time.Duration) error {
	if err := st.signIn(ctx, s, fx.Email, fx.Password, formTimeout); err != nil {
		return err
	}
	_, err := harness.WaitFor(ctx, s, harness.URLContains("/clubs"), clubsTimeout)
	return err
}

// checkToken verifies the session cookie set by a successful login belongs
// to the fixture account.
func (st *Suite) checkToken(ctx context.Context, s harness.Session, fx harness.Fixture) error {
	cr, ok := s.(harness.CookieReader)
	if !ok {
		return errors.New("session cannot read cookies")
	}
	value, found, err := cr.Cookie(ctx, st.TokenCookie)
	if err != nil {
		return err
	}
	if !found || value == "" {
		return harness.Assertf("cookie %q not set after login", st.TokenCookie)
	}
	verifier := st.Tokens
	if verifier == nil {
		verifier = NewTokenVerifier("")
	}
	claims, err := verifier.Verify(ctx, value)
	if err != nil {
		return harness.Assertf("cookie %q: %v", st.TokenCookie, err)
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		if harness.NormalizeEmail(email) != harness.NormalizeEmail(fx.Email) {
			return harness.Assertf("token belongs to %s, not %s", harness.MaskEmail(email), harness.MaskEmail(fx.Email))
		}
	}
	return nil
}
