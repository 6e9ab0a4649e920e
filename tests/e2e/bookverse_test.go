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

package e2e

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/ttbt-io/journeys/harness"
)

const (
	tokenCookie = "bookverse_token"
	keyID       = "e2e"
)

type account struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	password string
}

// bookverse is a minimal stand-in for the BookVerse frontend and its auth
// API.
type bookverse struct {
	// URL is what the browser uses; LocalURL is reachable from the test.
	URL      string
	LocalURL string

	key  *rsa.PrivateKey
	jwks []byte

	mu       sync.Mutex
	accounts map[string]account
}

func startApp(t *testing.T) *bookverse {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey: %v", err)
	}
	pub, err := jwk.Import(&key.PublicKey)
	if err != nil {
		t.Fatalf("jwk.Import: %v", err)
	}
	if err := pub.Set(jwk.KeyIDKey, keyID); err != nil {
		t.Fatalf("jwk.Set: %v", err)
	}
	set := jwk.NewSet()
	if err := set.AddKey(pub); err != nil {
		t.Fatalf("AddKey: %v", err)
	}
	jwks, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("json.Marshal: %v", err)
	}
	app := &bookverse{
		key:      key,
		jwks:     jwks,
		accounts: make(map[string]account),
	}

	// Listen on all interfaces so that a browser in another container can
	// reach the app through -app-host.
	l, err := net.Listen("tcp", "0.0.0.0:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	srv := httptest.NewUnstartedServer(app.handler())
	srv.Listener.Close()
	srv.Listener = l
	srv.Start()
	t.Cleanup(srv.Close)

	port := l.Addr().(*net.TCPAddr).Port
	app.URL = fmt.Sprintf("http://%s:%d", *appHost, port)
	app.LocalURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	return app
}

func (app *bookverse) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", app.register)
	mux.HandleFunc("POST /api/login", app.login)
	mux.HandleFunc("POST /api/logout", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: tokenCookie, Value: "", Path: "/", MaxAge: -1})
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/me", app.me)
	mux.HandleFunc("GET /.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write(app.jwks)
	})
	mux.HandleFunc("GET /lab/intercept", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, interceptPage)
	})
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, indexPage)
	})
	return mux
}

type credentials struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func readCredentials(r *http.Request) (credentials, error) {
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		return c, err
	}
	if c.Email == "" || c.Password == "" {
		return c, errors.New("email and password are required")
	}
	return c, nil
}

func (app *bookverse) register(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil || c.Username == "" {
		http.Error(w, "Invalid registration", http.StatusBadRequest)
		return
	}
	email := harness.NormalizeEmail(c.Email)
	app.mu.Lock()
	_, exists := app.accounts[email]
	if !exists {
		app.accounts[email] = account{Username: c.Username, Email: c.Email, password: c.Password}
	}
	app.mu.Unlock()
	if exists {
		http.Error(w, "Email already registered", http.StatusConflict)
		return
	}
	app.startSession(w, account{Username: c.Username, Email: c.Email})
}

func (app *bookverse) login(w http.ResponseWriter, r *http.Request) {
	c, err := readCredentials(r)
	if err != nil {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	app.mu.Lock()
	acct, ok := app.accounts[harness.NormalizeEmail(c.Email)]
	app.mu.Unlock()
	if !ok || acct.password != c.Password {
		http.Error(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}
	app.startSession(w, acct)
}

func (app *bookverse) startSession(w http.ResponseWriter, acct account) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"sub":      acct.Username,
		"email":    acct.Email,
		"username": acct.Username,
		"exp":      time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = keyID
	signed, err := token.SignedString(app.key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     tokenCookie,
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(acct)
}

func (app *bookverse) me(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(tokenCookie)
	if err != nil || c.Value == "" {
		http.Error(w, "Not signed in", http.StatusUnauthorized)
		return
	}
	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(c.Value, claims, func(*jwt.Token) (any, error) {
		return &app.key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		http.Error(w, "Not signed in", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"username": claims["username"],
		"email":    claims["email"],
	})
}

func (app *bookverse) hasAccount(email string) bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	_, ok := app.accounts[harness.NormalizeEmail(email)]
	return ok
}

// The auth form appears after a short delay so that waits are exercised.
// The Sign Up toggle sits under a transparent shield: native clicks land
// on the shield and only a script click reaches it.
const indexPage = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>BookVerse</title>
<style>
body { font-family: sans-serif; margin: 0; }
.navbar { background: #234; color: #fff; padding: 12px; }
.auth { padding: 24px; }
.auth input { display: block; margin: 8px 0; }
.switch-mode { position: relative; display: inline-block; margin-top: 16px; }
.switch-mode .shield { position: absolute; top: 0; left: 0; right: 0; bottom: 0; }
.club-card { border: 1px solid #ccc; margin: 8px; padding: 8px; }
.error-message { color: #b00; }
</style>
</head>
<body>
<div id="app"></div>
<script>
const app = document.getElementById('app');
const clubs = [
  {id: 1, name: 'Mystery Lovers'},
  {id: 2, name: 'Sci-Fi Circle'},
  {id: 3, name: 'Poetry Corner'},
];
let signUp = false;

function go(path, replace) {
  if (replace) {
    history.replaceState(null, '', path);
  } else {
    history.pushState(null, '', path);
  }
  render();
}

async function post(path, body) {
  const resp = await fetch(path, {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify(body || {}),
  });
  if (!resp.ok) {
    throw new Error(await resp.text());
  }
  return resp.status === 204 ? null : resp.json();
}

async function render() {
  const path = location.pathname;
  if (path === '/auth') {
    app.innerHTML = '<p>Loading...</p>';
    setTimeout(renderAuth, 300);
    return;
  }
  if (path.startsWith('/clubs')) {
    const resp = await fetch('/api/me');
    if (!resp.ok) {
      go('/auth', true);
      return;
    }
    const me = await resp.json();
    const m = path.match(/^\/clubs\/(\d+)$/);
    if (m) {
      renderDetails(me, Number(m[1]));
    } else {
      renderClubs(me);
    }
    return;
  }
  go('/auth', true);
}

function renderAuth() {
  app.innerHTML =
    '<div class="auth">' +
    '<h1>' + (signUp ? 'Create account' : 'Sign In') + '</h1>' +
    '<form id="auth-form">' +
    (signUp ? '<input name="username" placeholder="Username">' : '') +
    '<input name="email" placeholder="Email">' +
    '<input name="password" type="password" placeholder="Password">' +
    '<button type="submit" class="submit-button">' + (signUp ? 'Register' : 'Sign In') + '</button>' +
    '</form>' +
    '<div id="error"></div>' +
    '<div class="switch-mode"><span id="toggle">' + (signUp ? 'Sign In instead' : 'Sign Up') + '</span><div class="shield"></div></div>' +
    '</div>';
  document.getElementById('toggle').onclick = () => {
    signUp = !signUp;
    renderAuth();
  };
  const form = document.getElementById('auth-form');
  form.onsubmit = async (e) => {
    e.preventDefault();
    const data = Object.fromEntries(new FormData(form));
    try {
      await post(signUp ? '/api/register' : '/api/login', data);
      go('/clubs');
    } catch (err) {
      console.error('auth failed', err.message);
      document.getElementById('error').innerHTML = '<div class="error-message">Invalid email or password</div>';
    }
  };
}

function navbar(me) {
  return '<nav class="navbar">BookVerse <span class="user"></span> <button id="logout">Log Out</button></nav>';
}

function bindNavbar(me) {
  app.querySelector('.navbar .user').textContent = me.username;
  document.getElementById('logout').onclick = async () => {
    await post('/api/logout');
    go('/auth');
  };
}

function renderClubs(me) {
  app.innerHTML = navbar(me) + clubs.map(c =>
    '<div class="club-card"><h3>' + c.name + '</h3>' +
    '<button class="view-button" data-id="' + c.id + '">View</button></div>').join('');
  bindNavbar(me);
  app.querySelectorAll('.view-button').forEach(b => {
    b.onclick = () => go('/clubs/' + b.dataset.id);
  });
}

function renderDetails(me, id) {
  const club = clubs.find(c => c.id === id);
  app.innerHTML = navbar(me) +
    '<h2>' + (club ? club.name : 'Unknown club') + '</h2>' +
    '<button class="back-button">Back</button>';
  bindNavbar(me);
  app.querySelector('.back-button').onclick = () => go('/clubs');
}

window.addEventListener('popstate', render);
render();
</script>
</body>
</html>
`

// interceptPage has a button covered by an overlay. A click that reaches
// the button changes the fragment.
const interceptPage = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<style>
#wrap { position: relative; display: inline-block; margin: 40px; }
#overlay { position: absolute; top: 0; left: 0; right: 0; bottom: 0; background: rgba(0, 0, 0, 0.1); }
</style>
</head>
<body>
<div id="wrap"><button id="target" onclick="location.hash = 'clicked'">Covered</button><div id="overlay"></div></div>
<button id="plain" onclick="location.hash = 'plain'">Plain</button>
<button id="disabled" disabled>Disabled</button>
</body>
</html>
`
