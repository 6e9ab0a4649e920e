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
	"strings"

	"github.com/ttbt-io/journeys/harness/search"
)

// Select returns the scenarios matching query, in their declared order. An
// empty query selects everything.
func Select(scenarios []Scenario, query string) ([]Scenario, error) {
	if strings.TrimSpace(query) == "" {
		return scenarios, nil
	}
	q := search.Parse(query)
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("invalid selection %q: %w", query, err)
	}
	var out []Scenario
	for _, sc := range scenarios {
		if q.Match(search.Candidate{ID: sc.ID, Name: sc.Name, Tags: sc.Tags}) {
			out = append(out, sc)
		}
	}
	return out, nil
}
