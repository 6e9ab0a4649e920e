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

// Package search parses scenario selection queries such as
// `id:3..6 tag:auth "valid login"`.
package search

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Operator defines the type of comparison for a filter.
type Operator string

const (
	OpEqual          Operator = "="
	OpGreater        Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLess           Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpRange          Operator = ".." // id:3..6, inclusive
)

// Known filter keys.
const (
	KeyID   = "id"
	KeyName = "name"
	KeyTag  = "tag"
)

// Filter is one key:value criterion.
type Filter struct {
	Key      string
	Value    string
	MaxValue string // OpRange only
	Operator Operator
}

// Query is a parsed selection. All filters and all free text terms must
// match.
type Query struct {
	Filters  []Filter
	FreeText []string
}

// Candidate is what a query is matched against.
type Candidate struct {
	ID   int
	Name string
	Tags []string
}

// Parse parses a selection query. Quoted values may contain spaces; a value
// with an unquoted colon is kept as free text.
func Parse(input string) Query {
	var q Query
	for _, token := range tokenize(input) {
		key, val, ok := strings.Cut(token, ":")
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)
		if !ok || key == "" || val == "" || (strings.Contains(val, ":") && !isQuoted(val)) {
			q.FreeText = append(q.FreeText, removeQuotes(token))
			continue
		}
		q.Filters = append(q.Filters, parseFilter(key, val))
	}
	return q
}

func parseFilter(key, val string) Filter {
	if lo, hi, ok := strings.Cut(val, ".."); ok {
		return Filter{Key: key, Value: removeQuotes(lo), MaxValue: removeQuotes(hi), Operator: OpRange}
	}
	for _, op := range []Operator{OpGreaterOrEqual, OpLessOrEqual, OpGreater, OpLess} {
		if rest, ok := strings.CutPrefix(val, string(op)); ok {
			return Filter{Key: key, Value: removeQuotes(rest), Operator: op}
		}
	}
	return Filter{Key: key, Value: removeQuotes(val), Operator: OpEqual}
}

// Validate reports unknown keys, non-numeric ids and comparisons on keys
// that only support equality.
func (q Query) Validate() error {
	for _, f := range q.Filters {
		switch f.Key {
		case KeyID:
			if _, err := strconv.Atoi(f.Value); err != nil {
				return fmt.Errorf("id:%s: %q is not a number", f.Operator, f.Value)
			}
			if f.Operator == OpRange {
				if _, err := strconv.Atoi(f.MaxValue); err != nil {
					return fmt.Errorf("id range: %q is not a number", f.MaxValue)
				}
			}
		case KeyName, KeyTag:
			if f.Operator != OpEqual {
				return fmt.Errorf("%s: operator %s not supported", f.Key, f.Operator)
			}
		default:
			return fmt.Errorf("unknown key %q", f.Key)
		}
	}
	return nil
}

// Match reports whether c satisfies every filter and free text term. Free
// text matches the name, case-insensitively.
func (q Query) Match(c Candidate) bool {
	name := strings.ToLower(c.Name)
	for _, t := range q.FreeText {
		if !strings.Contains(name, strings.ToLower(t)) {
			return false
		}
	}
	for _, f := range q.Filters {
		if !f.match(c, name) {
			return false
		}
	}
	return true
}

func (f Filter) match(c Candidate, lowerName string) bool {
	switch f.Key {
	case KeyID:
		v, err := strconv.Atoi(f.Value)
		if err != nil {
			return false
		}
		switch f.Operator {
		case OpEqual:
			return c.ID == v
		case OpGreater:
			return c.ID > v
		case OpGreaterOrEqual:
			return c.ID >= v
		case OpLess:
			return c.ID < v
		case OpLessOrEqual:
			return c.ID <= v
		case OpRange:
			hi, err := strconv.Atoi(f.MaxValue)
			return err == nil && c.ID >= v && c.ID <= hi
		}
	case KeyName:
		return strings.Contains(lowerName, strings.ToLower(f.Value))
	case KeyTag:
		for _, t := range c.Tags {
			if strings.EqualFold(t, f.Value) {
				return true
			}
		}
	}
	return false
}

// tokenize splits the string by spaces, respecting quotes.
func tokenize(input string) []string {
	var tokens []string
	var current strings.Builder
	var quote rune

	for _, r := range input {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
			current.WriteRune(r)
		case unicode.IsSpace(r):
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
		case r == '"' || r == '\'':
			quote = r
			current.WriteRune(r)
		default:
			current.WriteRune(r)
		}
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func isQuoted(s string) bool {
	return strings.HasPrefix(s, `"`) || strings.HasPrefix(s, `'`)
}

func removeQuotes(s string) string {
	if len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
