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
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

const (
	jwksFetchTimeout  = 10 * time.Second
	jwksRefreshPeriod = time.Minute
)

// TokenVerifier checks the session token the application sets on login.
// With a JWKS URL the signature is verified; without one only the claims
// are decoded and the expiry checked.
type TokenVerifier struct {
	JWKSURL string

	mu          sync.RWMutex
	keys        jwk.Set
	lastRefresh time.Time
}

// NewTokenVerifier returns a verifier for keys published at jwksURL, which
// may be empty.
func NewTokenVerifier(jwksURL string) *TokenVerifier {
	return &TokenVerifier{JWKSURL: jwksURL}
}

func (v *TokenVerifier) refreshKeys(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, jwksFetchTimeout)
	defer cancel()

	set, err := jwk.Fetch(ctx, v.JWKSURL)
	if err != nil {
		return fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	v.mu.Lock()
	v.keys = set
	v.lastRefresh = time.Now()
	v.mu.Unlock()
	return nil
}

func findKey(set jwk.Set, id string) (any, error) {
	if set == nil {
		return nil, errors.New("JWKS not initialized")
	}
	key, ok := set.LookupKeyID(id)
	if !ok {
		return nil, fmt.Errorf("key %s not found in JWKS", id)
	}
	var raw any
	if err := jwk.Export(key, &raw); err != nil {
		return nil, fmt.Errorf("failed to materialize key: %w", err)
	}
	return raw, nil
}

// Verify parses tokenString and returns its claims.
func (v *TokenVerifier) Verify(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	if v.JWKSURL == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, err
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return nil, err
		}
		if exp != nil && exp.Before(time.Now()) {
			return nil, fmt.Errorf("token expired at %s", exp.Format(time.RFC3339))
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA, *jwt.SigningMethodEd25519:
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("token missing 'kid' header")
		}

		v.mu.RLock()
		keys, lastRefresh := v.keys, v.lastRefresh
		v.mu.RUnlock()

		key, err := findKey(keys, kid)
		if err == nil {
			return key, nil
		}
		if time.Since(lastRefresh) > jwksRefreshPeriod {
			if err := v.refreshKeys(ctx); err != nil {
				log.Printf("[token] %v", err)
				return nil, err
			}
			v.mu.RLock()
			keys = v.keys
			v.mu.RUnlock()
			return findKey(keys, kid)
		}
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
