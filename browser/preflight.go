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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const preflightTimeout = 10 * time.Second

// Version describes a reachable browser.
type Version struct {
	Product         string `json:"Browser"`
	ProtocolVersion string `json:"Protocol-Version"`
	UserAgent       string `json:"User-Agent"`
	WebSocketURL    string `json:"webSocketDebuggerUrl"`
}

// Preflight checks that the DevTools endpoint at remoteURL answers a
// Browser.getVersion call. remoteURL may be the websocket URL itself or the
// http(s)/ws(s) address of the debugging port.
func Preflight(ctx context.Context, remoteURL string) (Version, error) {
	ctx, cancel := context.WithTimeout(ctx, preflightTimeout)
	defer cancel()

	u, err := url.Parse(remoteURL)
	if err != nil {
		return Version{}, fmt.Errorf("browser: parse %q: %w", remoteURL, err)
	}
	var v Version
	if u.Path == "" || u.Path == "/" {
		if v, err = discover(ctx, u); err != nil {
			return Version{}, err
		}
	} else {
		v.WebSocketURL = u.String()
	}

	dialer := websocket.Dialer{HandshakeTimeout: preflightTimeout}
	conn, resp, err := dialer.DialContext(ctx, v.WebSocketURL, nil)
	if err != nil {
		if resp != nil {
			return Version{}, fmt.Errorf("browser: dial %s: %w (status %s)", v.WebSocketURL, err, resp.Status)
		}
		return Version{}, fmt.Errorf("browser: dial %s: %w", v.WebSocketURL, err)
	}
	defer conn.Close()
	if d, ok := ctx.Deadline(); ok {
		conn.SetReadDeadline(d)
		conn.SetWriteDeadline(d)
	}

	if err := conn.WriteJSON(map[string]any{"id": 1, "method": "Browser.getVersion"}); err != nil {
		return Version{}, fmt.Errorf("browser: send: %w", err)
	}
	for {
		var msg struct {
			ID     int64 `json:"id"`
			Result struct {
				ProtocolVersion string `json:"protocolVersion"`
				Product         string `json:"product"`
				UserAgent       string `json:"userAgent"`
			} `json:"result"`
			Error *struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return Version{}, fmt.Errorf("browser: read: %w", err)
		}
		if msg.ID != 1 {
			continue
		}
		if msg.Error != nil {
			return Version{}, fmt.Errorf("browser: Browser.getVersion: %s", msg.Error.Message)
		}
		v.Product = msg.Result.Product
		v.ProtocolVersion = msg.Result.ProtocolVersion
		v.UserAgent = msg.Result.UserAgent
		return v, nil
	}
}

// discover reads the browser websocket URL from /json/version.
func discover(ctx context.Context, u *url.URL) (Version, error) {
	hu := *u
	switch hu.Scheme {
	case "ws":
		hu.Scheme = "http"
	case "wss":
		hu.Scheme = "https"
	}
	hu.Path = "/json/version"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, hu.String(), nil)
	if err != nil {
		return Version{}, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return Version{}, fmt.Errorf("browser: %s: %w", hu.String(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Version{}, fmt.Errorf("browser: %s: %s", hu.String(), resp.Status)
	}
	var v Version
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		return Version{}, fmt.Errorf("browser: decode %s: %w", hu.String(), err)
	}
	if v.WebSocketURL == "" {
		return Version{}, fmt.Errorf("browser: %s has no webSocketDebuggerUrl", hu.String())
	}
	return v, nil
}
