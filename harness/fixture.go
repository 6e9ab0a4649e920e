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
	"fmt"
	"math/rand/v2"
	"strings"
)

const (
	letters         = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	fixturePassword = "Password123!"
)

// Fixture is the synthetic account shared by the scenarios of one run.
// It is passed by value and never regenerated mid-run.
type Fixture struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"-"`
}

// NewFixture generates a fixture with random suffixes.
func NewFixture(r *rand.Rand) Fixture {
	var b strings.Builder
	for range 5 {
		b.WriteByte(letters[r.IntN(len(letters))])
	}
	return Fixture{
		Username: "User_" + b.String(),
		Email:    fmt.Sprintf("test_%d@example.com", 10000+r.IntN(90000)),
		Password: fixturePassword,
	}
}

// String never includes the password.
func (f Fixture) String() string {
	return fmt.Sprintf("%s <%s>", f.Username, MaskEmail(f.Email))
}

// Masked returns a copy safe to log and persist.
func (f Fixture) Masked() Fixture {
	return Fixture{Username: f.Username, Email: MaskEmail(f.Email)}
}

// MaskEmail obscures an email address for safe logging.
// e.g. "user@example.com" -> "u***@example.com"
func MaskEmail(email string) string {
	if email == "" {
		return "<empty>"
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 || len(parts[0]) < 1 {
		return "****"
	}
	return string(parts[0][0]) + "***@" + parts[1]
}

// NormalizeEmail ensures consistent casing and whitespace.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
