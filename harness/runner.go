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
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

const diagnosticsTimeout = 10 * time.Second

// Outcome of one scenario.
type Outcome string

const (
	Pass Outcome = "pass"
	Fail Outcome = "fail"
	// Skip is only produced when Runner.SkipDependents is set.
	Skip Outcome = "skip"
)

// Verdict is what a scenario function returns: Passed or Failed.
type Verdict struct {
	Outcome Outcome
	Detail  string
	Err     error
}

// Passed returns a passing verdict with a formatted detail line.
func Passed(format string, args ...any) Verdict {
	return Verdict{Outcome: Pass, Detail: fmt.Sprintf(format, args...)}
}

// Failed returns a failing verdict for err.
func Failed(err error) Verdict {
	if err == nil {
		err = errors.New("failed without error")
	}
	return Verdict{Outcome: Fail, Detail: err.Error(), Err: err}
}

// Scenario is one named end-to-end test case.
type Scenario struct {
	ID   int
	Name string
	Tags []string
	// DependsOn lists scenarios whose side effects this one relies on. The
	// runner only acts on it when SkipDependents is set.
	DependsOn []int
	Run       func(ctx context.Context, s Session, fx Fixture) Verdict
}

// Result is the recorded outcome of one scenario.
type Result struct {
	ID          int           `json:"id"`
	Name        string        `json:"name"`
	Outcome     Outcome       `json:"outcome"`
	Detail      string        `json:"detail,omitempty"`
	Kind        string        `json:"kind,omitempty"`
	URL         string        `json:"url,omitempty"`
	PageExcerpt string        `json:"pageExcerpt,omitempty"`
	Console     []string      `json:"console,omitempty"`
	Screenshot  string        `json:"screenshot,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// Runner executes scenarios one after the other, each in its own session.
type Runner struct {
	Sessions SessionFactory
	Fixture  Fixture
	// Out receives one line per scenario. Defaults to os.Stdout.
	Out io.Writer
	// ScenarioTimeout bounds each scenario. Defaults to
	// DefaultScenarioTimeout.
	ScenarioTimeout time.Duration
	// SkipDependents records a scenario as skipped, without opening a
	// session, when one of its dependencies did not pass.
	SkipDependents bool
	// ScreenshotDir, if set, receives a screenshot of every failure.
	ScreenshotDir string
}

// RunAll runs scenarios in order and returns exactly one result per
// scenario, whatever the individual outcomes.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) Report {
	rep := Report{
		RunID:   uuid.NewString(),
		Fixture: r.Fixture.Masked(),
		Started: time.Now().UTC(),
		Results: make([]Result, 0, len(scenarios)),
	}
	names := make(map[int]string, len(scenarios))
	for _, sc := range scenarios {
		names[sc.ID] = sc.Name
	}
	outcomes := make(map[int]Outcome, len(scenarios))

	log.Printf("[runner] run %s: %d scenarios, fixture %s", rep.RunID, len(scenarios), r.Fixture)
	for _, sc := range scenarios {
		res := r.runOne(ctx, sc, outcomes, names)
		outcomes[sc.ID] = res.Outcome
		rep.add(res)
		fmt.Fprint(r.out(), FormatResult(res))
	}
	rep.Finished = time.Now().UTC()
	return rep
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

func (r *Runner) runOne(ctx context.Context, sc Scenario, outcomes map[int]Outcome, names map[int]string) (res Result) {
	res = Result{ID: sc.ID, Name: sc.Name}
	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()

	if r.SkipDependents {
		for _, dep := range sc.DependsOn {
			if outcomes[dep] != Pass {
				res.Outcome = Skip
				res.Kind = KindSkipped
				res.Detail = fmt.Sprintf("dependency %s did not pass", depName(dep, names))
				log.Printf("[runner] skipping %d %s: %s", sc.ID, sc.Name, res.Detail)
				return res
			}
		}
	}

	timeout := r.ScenarioTimeout
	if timeout <= 0 {
		timeout = DefaultScenarioTimeout
	}
	sctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	log.Printf("[runner] starting %d %s", sc.ID, sc.Name)
	ran := false
	var v Verdict
	err := WithSession(sctx, r.Sessions, func(s Session) error {
		ran = true
		v = invoke(sctx, sc, s, r.Fixture)
		if v.Outcome != Pass {
			r.capture(ctx, s, sc, &res)
		}
		return nil
	})
	if err != nil {
		if !ran {
			v = Failed(err)
		} else {
			log.Printf("[runner] scenario %d: %v", sc.ID, err)
		}
	}

	res.Outcome = v.Outcome
	res.Detail = v.Detail
	if v.Outcome != Pass {
		res.Outcome = Fail
		res.Kind = ErrorKind(v.Err)
		if res.Detail == "" {
			res.Detail = "scenario returned no verdict"
		}
		if len(sc.DependsOn) > 0 {
			deps := make([]string, len(sc.DependsOn))
			for i, d := range sc.DependsOn {
				deps[i] = depName(d, names)
			}
			res.Detail += fmt.Sprintf(" (check that %s passed first)", strings.Join(deps, ", "))
		}
	}
	return res
}

// invoke calls the scenario and converts a panic into a failing verdict.
func invoke(ctx context.Context, sc Scenario, s Session, fx Fixture) (v Verdict) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("[runner] scenario %d panicked: %v\n%s", sc.ID, p, debug.Stack())
			v = Failed(&panicError{value: p})
		}
	}()
	return sc.Run(ctx, s, fx)
}

// capture records failure diagnostics while the session is still live.
func (r *Runner) capture(ctx context.Context, s Session, sc Scenario, res *Result) {
	dctx, cancel := context.WithTimeout(ctx, diagnosticsTimeout)
	defer cancel()

	if u, err := s.CurrentURL(dctx); err == nil {
		res.URL = u
	} else {
		log.Printf("[runner] diagnostics url: %v", err)
	}
	if src, err := s.PageSource(dctx); err == nil {
		res.PageExcerpt = excerpt(src, PageExcerptLength)
	} else {
		log.Printf("[runner] diagnostics page source: %v", err)
	}
	if cr, ok := s.(ConsoleReader); ok {
		res.Console = cr.ConsoleErrors()
	}
	if r.ScreenshotDir == "" {
		return
	}
	sh, ok := s.(Screenshotter)
	if !ok {
		return
	}
	buf, err := sh.Screenshot(dctx)
	if err != nil {
		log.Printf("[runner] screenshot: %v", err)
		return
	}
	if err := os.MkdirAll(r.ScreenshotDir, 0755); err != nil {
		log.Printf("[runner] screenshot dir: %v", err)
		return
	}
	filename := filepath.Join(r.ScreenshotDir, fmt.Sprintf("scenario-%02d-%s.png", sc.ID, slug(sc.Name)))
	if err := os.WriteFile(filename, buf, 0644); err != nil {
		log.Printf("[runner] screenshot write: %v", err)
		return
	}
	res.Screenshot = filename
}

func depName(id int, names map[int]string) string {
	if n, ok := names[id]; ok {
		return fmt.Sprintf("Test %d (%s)", id, n)
	}
	return fmt.Sprintf("Test %d", id)
}

func excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func slug(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		}
		return '-'
	}, s)
}
