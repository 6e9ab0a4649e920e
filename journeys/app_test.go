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

package journeys_test

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ttbt-io/journeys/harness"
	"github.com/ttbt-io/journeys/harness/harnesstest"
)

const baseURL = "http://bookverse.test"

type account struct {
	username, email, password string
}

// bookverse is a scripted stand-in for the BookVerse front end. Accounts are
// shared by every session, like a server would.
type bookverse struct {
	// token, if set, mints the session cookie value for an email.
	token func(email string) string

	mu       sync.Mutex
	accounts map[string]account
	pages    []*page
}

func newBookverse() *bookverse {
	return &bookverse{accounts: make(map[string]account)}
}

func (app *bookverse) factory() *harnesstest.Factory {
	return &harnesstest.Factory{Setup: app.attach}
}

func (app *bookverse) attach(s *harnesstest.Session) {
	p := &page{app: app, s: s}
	app.mu.Lock()
	app.pages = append(app.pages, p)
	app.mu.Unlock()
	s.OnNavigate = func(_ *harnesstest.Session, u string) { p.navigate(u) }
}

func (app *bookverse) register(a account) {
	app.mu.Lock()
	defer app.mu.Unlock()
	app.accounts[a.email] = a
}

func (app *bookverse) login(email, password string) bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	a, ok := app.accounts[email]
	return ok && a.password == password
}

func (app *bookverse) account(email string) (account, bool) {
	app.mu.Lock()
	defer app.mu.Unlock()
	a, ok := app.accounts[email]
	return a, ok
}

// page is the state of one browser session. All callbacks run on the
// scenario goroutine.
type page struct {
	app  *bookverse
	s    *harnesstest.Session
	user string

	toggle    *harnesstest.Element
	submitted []account
}

func (p *page) navigate(u string) {
	switch path := strings.TrimPrefix(u, baseURL); path {
	case "", "/", "/auth":
		p.showAuth()
	case "/clubs":
		if p.user == "" {
			p.showAuth()
			return
		}
		p.showClubs()
	default:
		p.s.Reset()
		p.s.SetSource("<h1>Not Found</h1>")
	}
}

func (p *page) showAuth() {
	s := p.s
	s.Reset()
	s.SetURL(baseURL + "/auth")
	s.SetSource(`<div class="auth"><form><input name="email"><input name="password"><button type="submit">Log In</button></form><p class="switch-mode"><span>Sign Up</span></p></div>`)

	email := &harnesstest.Element{Name: "email"}
	password := &harnesstest.Element{Name: "password"}
	submit := &harnesstest.Element{Name: "submit"}
	var username *harnesstest.Element

	s.Add(harness.Name("email"), email)
	s.Add(harness.Name("password"), password)
	s.Add(harness.CSS("button[type='submit']"), submit)
	// A stale control from an older layout, present but hidden.
	s.Add(harness.Class("switch-button"), &harnesstest.Element{Name: "old toggle", Hidden: true})

	// The toggle sits under a transparent overlay, so native clicks miss it.
	p.toggle = &harnesstest.Element{Name: "sign up span", Intercept: true}
	p.toggle.OnClick = func() {
		if username != nil {
			return
		}
		username = &harnesstest.Element{Name: "username"}
		s.Add(harness.Name("username"), username)
	}
	s.Add(harness.XPath("//span[contains(text(), 'Sign Up')]"), p.toggle)

	submit.OnClick = func() {
		a := account{email: email.Value, password: password.Value}
		if username != nil {
			a.username = username.Value
		}
		p.submitted = append(p.submitted, a)
		switch {
		case username != nil:
			p.app.register(a)
		case !p.app.login(a.email, a.password):
			s.Add(harness.Class("error-message"), &harnesstest.Element{Name: "error", Label: "Invalid email or password"})
			return
		}
		p.user = a.email
		if p.app.token != nil {
			s.SetCookie("bookverse_token", p.app.token(a.email))
		}
		p.showClubs()
	}
}

func (p *page) showClubs() {
	s := p.s
	s.Reset()
	s.SetURL(baseURL + "/clubs")
	s.SetSource(`<nav class="navbar"><button>Log Out</button></nav><div class="club-card">...</div>`)
	s.Add(harness.Class("navbar"), &harnesstest.Element{Name: "navbar"})
	for i, name := range []string{"Mystery Readers", "Sci-Fi Circle", "Poetry Night"} {
		s.Add(harness.Class("club-card"), &harnesstest.Element{Name: "card " + name, Label: name})
		s.Add(harness.Class("view-button"), &harnesstest.Element{
			Name:    fmt.Sprintf("view %d", i+1),
			OnClick: func() { p.showDetails(i + 1) },
		})
	}
	s.Add(harness.XPath("//button[contains(text(), 'Log Out')]"), &harnesstest.Element{
		Name: "logout",
		OnClick: func() {
			p.user = ""
			p.showAuth()
		},
	})
}

func (p *page) showDetails(id int) {
	s := p.s
	s.Reset()
	s.SetURL(fmt.Sprintf("%s/clubs/%d", baseURL, id))
	s.Add(harness.Class("back-button"), &harnesstest.Element{Name: "back"})
}
