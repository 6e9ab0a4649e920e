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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Report is the ordered list of results of one run plus aggregate counts.
type Report struct {
	RunID    string    `json:"runId"`
	BaseURL  string    `json:"baseUrl,omitempty"`
	Fixture  Fixture   `json:"fixture"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`
	Results  []Result  `json:"results"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
}

func (rep *Report) add(res Result) {
	rep.Results = append(rep.Results, res)
	switch res.Outcome {
	case Pass:
		rep.Passed++
	case Skip:
		rep.Skipped++
	default:
		rep.Failed++
	}
}

// FormatResult renders the progress line of one result, followed by
// indented diagnostics for failures.
func FormatResult(res Result) string {
	var b strings.Builder
	switch res.Outcome {
	case Pass:
		fmt.Fprintf(&b, "✓ Test %d Passed: %s\n", res.ID, res.Detail)
	case Skip:
		fmt.Fprintf(&b, "- Test %d Skipped: %s\n", res.ID, res.Detail)
	default:
		fmt.Fprintf(&b, "✗ Test %d Failed: %s\n", res.ID, res.Detail)
		if res.URL != "" {
			fmt.Fprintf(&b, "    Current URL: %s\n", res.URL)
		}
		if res.PageExcerpt != "" {
			fmt.Fprintf(&b, "    Page source preview: %s\n", res.PageExcerpt)
		}
		for _, c := range res.Console {
			fmt.Fprintf(&b, "    Console: %s\n", c)
		}
		if res.Screenshot != "" {
			fmt.Fprintf(&b, "    Screenshot: %s\n", res.Screenshot)
		}
	}
	return b.String()
}

// WriteSummary writes the aggregate line.
func (rep Report) WriteSummary(w io.Writer) error {
	_, err := fmt.Fprintf(w, "\nAll %d tests completed: %d passed, %d failed, %d skipped (%s).\n",
		len(rep.Results), rep.Passed, rep.Failed, rep.Skipped, rep.Finished.Sub(rep.Started).Round(time.Millisecond))
	return err
}

// Outline returns one stable line per result, without timings or
// diagnostics, so that two runs can be compared.
func (rep Report) Outline() string {
	var b strings.Builder
	for _, res := range rep.Results {
		fmt.Fprintf(&b, "%2d %-20s %s", res.ID, res.Name, res.Outcome)
		if res.Kind != "" {
			fmt.Fprintf(&b, " [%s]", res.Kind)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteJSON writes the report to filename.
func (rep Report) WriteJSON(filename string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return fmt.Errorf("failed to create directory for report: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write report to file: %w", err)
	}
	return nil
}
