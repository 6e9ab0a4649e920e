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

package harness_test

import (
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ttbt-io/journeys/harness"
	"github.com/ttbt-io/journeys/harness/harnesstest"
	"pgregory.net/rapid"
)

func passing(id int, name string) harness.Scenario {
	return harness.Scenario{
		ID:   id,
		Name: name,
		Run: func(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
			return harness.Passed("%s ok", name)
		},
	}
}

func failing(id int, name string, err error) harness.Scenario {
	return harness.Scenario{
		ID:   id,
		Name: name,
		Run: func(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
			return harness.Failed(err)
		},
	}
}

func testFixture() harness.Fixture {
	return harness.NewFixture(rand.New(rand.NewPCG(1, 2)))
}

func TestRunAll(t *testing.T) {
	ctx := context.Background()

	t.Run("OrderAndIsolation", func(t *testing.T) {
		f := &harnesstest.Factory{}
		var out bytes.Buffer
		seen := map[harness.Session]int{}
		record := func(id int) harness.Scenario {
			sc := passing(id, "step")
			sc.Run = func(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
				seen[s] = id
				return harness.Passed("step %d", id)
			}
			return sc
		}
		r := &harness.Runner{Sessions: f, Fixture: testFixture(), Out: &out}
		rep := r.RunAll(ctx, []harness.Scenario{record(1), record(2), record(3)})

		if len(seen) != 3 {
			t.Errorf("expected 3 distinct sessions, got %d", len(seen))
		}
		for i, s := range f.Sessions() {
			if s.Closed() != 1 {
				t.Errorf("session %d closed %d times", i, s.Closed())
			}
		}
		if f.MaxLive() != 1 {
			t.Errorf("MaxLive = %d, want 1", f.MaxLive())
		}
		want := "✓ Test 1 Passed: step 1\n✓ Test 2 Passed: step 2\n✓ Test 3 Passed: step 3\n"
		if out.String() != want {
			t.Errorf("output\n%s\nwant\n%s", out.String(), want)
		}
		if rep.Passed != 3 || rep.Failed != 0 || rep.RunID == "" {
			t.Errorf("unexpected report %+v", rep)
		}
		if rep.Fixture.Password != "" || strings.Contains(rep.Fixture.Email, "test_") {
			t.Errorf("report fixture not masked: %+v", rep.Fixture)
		}
	})

	t.Run("FailureDiagnostics", func(t *testing.T) {
		dir := t.TempDir()
		f := &harnesstest.Factory{Setup: func(s *harnesstest.Session) {
			s.PNG = []byte("png")
			s.Console = []string{"TypeError: x is undefined"}
		}}
		sc := harness.Scenario{
			ID:   5,
			Name: "Invalid login",
			Run: func(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
				fs := s.(*harnesstest.Session)
				fs.SetURL("http://localhost:8080/auth")
				fs.SetSource("<html>\n  <body>" + strings.Repeat("x", 1000) + "</body></html>")
				return harness.Failed(&harness.WaitTimeoutError{Condition: "visibility of class=error-message", Timeout: 5 * time.Second})
			},
		}
		var out bytes.Buffer
		r := &harness.Runner{Sessions: f, Out: &out, ScreenshotDir: dir}
		rep := r.RunAll(ctx, []harness.Scenario{sc})

		res := rep.Results[0]
		if res.Outcome != harness.Fail || res.Kind != harness.KindWaitTimeout {
			t.Errorf("unexpected result %+v", res)
		}
		if res.URL != "http://localhost:8080/auth" {
			t.Errorf("URL = %q", res.URL)
		}
		if len(res.PageExcerpt) != harness.PageExcerptLength || !strings.HasPrefix(res.PageExcerpt, "<html> <body>xxx") {
			t.Errorf("PageExcerpt = %q", res.PageExcerpt)
		}
		if len(res.Console) != 1 {
			t.Errorf("Console = %v", res.Console)
		}
		if res.Screenshot != filepath.Join(dir, "scenario-05-invalid-login.png") {
			t.Errorf("Screenshot = %q", res.Screenshot)
		}
		if b, err := os.ReadFile(res.Screenshot); err != nil || string(b) != "png" {
			t.Errorf("screenshot file: %q, %v", b, err)
		}
		for _, want := range []string{"✗ Test 5 Failed: wait timeout", "Current URL: http://localhost:8080/auth", "Page source preview: <html>", "Console: TypeError", "Screenshot: "} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("output missing %q:\n%s", want, out.String())
			}
		}
		if f.Sessions()[0].Closed() != 1 {
			t.Errorf("session not released")
		}
	})

	t.Run("PanicIsContained", func(t *testing.T) {
		f := &harnesstest.Factory{}
		boom := harness.Scenario{
			ID:   1,
			Name: "boom",
			Run: func(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
				var m map[string]int
				m["x"] = 1
				return harness.Passed("unreachable")
			},
		}
		r := &harness.Runner{Sessions: f, Out: &bytes.Buffer{}}
		rep := r.RunAll(ctx, []harness.Scenario{boom, passing(2, "next")})

		if rep.Results[0].Outcome != harness.Fail || rep.Results[0].Kind != harness.KindPanic {
			t.Errorf("unexpected result %+v", rep.Results[0])
		}
		if rep.Results[1].Outcome != harness.Pass {
			t.Errorf("next scenario did not run: %+v", rep.Results[1])
		}
		if f.Sessions()[0].Closed() != 1 {
			t.Errorf("panicking session not released")
		}
	})

	t.Run("DependencyHint", func(t *testing.T) {
		f := &harnesstest.Factory{}
		dep := failing(6, "Valid login", harness.Assertf("not on /clubs"))
		dep.DependsOn = []int{4}
		r := &harness.Runner{Sessions: f, Out: &bytes.Buffer{}}
		rep := r.RunAll(ctx, []harness.Scenario{failing(4, "Registration", errors.New("boom")), dep})

		want := "assertion failed: not on /clubs (check that Test 4 (Registration) passed first)"
		if got := rep.Results[1].Detail; got != want {
			t.Errorf("Detail = %q, want %q", got, want)
		}
		if rep.Results[1].Kind != harness.KindAssertionFailed {
			t.Errorf("Kind = %q", rep.Results[1].Kind)
		}
		if rep.Skipped != 0 || len(f.Sessions()) != 2 {
			t.Errorf("dependent was not run")
		}
	})

	t.Run("SkipDependents", func(t *testing.T) {
		f := &harnesstest.Factory{}
		runs := 0
		dep := passing(6, "Valid login")
		dep.DependsOn = []int{4}
		dep.Run = func(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
			runs++
			return harness.Passed("ok")
		}
		var out bytes.Buffer
		r := &harness.Runner{Sessions: f, Out: &out, SkipDependents: true}
		rep := r.RunAll(ctx, []harness.Scenario{failing(4, "Registration", errors.New("boom")), dep})

		if runs != 0 || len(f.Sessions()) != 1 {
			t.Errorf("dependent ran %d times with %d sessions", runs, len(f.Sessions()))
		}
		res := rep.Results[1]
		if res.Outcome != harness.Skip || res.Kind != harness.KindSkipped {
			t.Errorf("unexpected result %+v", res)
		}
		if rep.Passed != 0 || rep.Failed != 1 || rep.Skipped != 1 {
			t.Errorf("counts %d/%d/%d", rep.Passed, rep.Failed, rep.Skipped)
		}
		if !strings.Contains(out.String(), "- Test 6 Skipped: dependency Test 4 (Registration) did not pass") {
			t.Errorf("output:\n%s", out.String())
		}

		// A dependency that was not selected counts as not passed.
		rep = r.RunAll(ctx, []harness.Scenario{dep})
		if rep.Results[0].Outcome != harness.Skip || !strings.Contains(rep.Results[0].Detail, "Test 4 did not pass") {
			t.Errorf("unexpected result %+v", rep.Results[0])
		}
	})

	t.Run("SessionUnavailable", func(t *testing.T) {
		f := &harnesstest.Factory{Err: errors.New("dial tcp: connection refused")}
		r := &harness.Runner{Sessions: f, Out: &bytes.Buffer{}}
		rep := r.RunAll(ctx, []harness.Scenario{passing(1, "a"), passing(2, "b")})
		for _, res := range rep.Results {
			if res.Outcome != harness.Fail || res.Kind != harness.KindSessionUnavailable {
				t.Errorf("unexpected result %+v", res)
			}
		}
		if rep.Failed != 2 {
			t.Errorf("Failed = %d", rep.Failed)
		}
	})

	t.Run("ScenarioTimeout", func(t *testing.T) {
		f := &harnesstest.Factory{}
		slow := harness.Scenario{
			ID:   1,
			Name: "slow",
			Run: func(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
				_, err := harness.WaitFor(ctx, s, harness.Present(harness.Class("never")), time.Minute)
				return harness.Failed(err)
			},
		}
		r := &harness.Runner{Sessions: f, Out: &bytes.Buffer{}, ScenarioTimeout: 50 * time.Millisecond}
		start := time.Now()
		rep := r.RunAll(ctx, []harness.Scenario{slow})
		if time.Since(start) > 10*time.Second {
			t.Errorf("scenario timeout not enforced")
		}
		if rep.Results[0].Outcome != harness.Fail {
			t.Errorf("unexpected result %+v", rep.Results[0])
		}
	})

	t.Run("FixtureShared", func(t *testing.T) {
		f := &harnesstest.Factory{}
		fx := testFixture()
		var got []harness.Fixture
		sc := func(id int) harness.Scenario {
			return harness.Scenario{ID: id, Name: "fx", Run: func(ctx context.Context, s harness.Session, shared harness.Fixture) harness.Verdict {
				got = append(got, shared)
				return harness.Passed("ok")
			}}
		}
		r := &harness.Runner{Sessions: f, Fixture: fx, Out: &bytes.Buffer{}}
		r.RunAll(ctx, []harness.Scenario{sc(1), sc(2)})
		if len(got) != 2 || got[0] != fx || got[1] != fx {
			t.Errorf("fixture not shared: %+v", got)
		}
	})
}

func TestRunAllProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		kinds := rapid.SliceOfN(rapid.SampledFrom([]string{"pass", "fail", "panic"}), n, n).Draw(t, "kinds")

		scenarios := make([]harness.Scenario, n)
		wantPassed := 0
		for i, k := range kinds {
			if k == "pass" {
				wantPassed++
			}
			scenarios[i] = harness.Scenario{
				ID:   i + 1,
				Name: k,
				Run: func(ctx context.Context, s harness.Session, fx harness.Fixture) harness.Verdict {
					switch k {
					case "pass":
						return harness.Passed("ok")
					case "fail":
						return harness.Failed(harness.Assertf("no"))
					}
					panic(k)
				},
			}
		}

		f := &harnesstest.Factory{}
		r := &harness.Runner{Sessions: f, Out: &bytes.Buffer{}}
		rep := r.RunAll(context.Background(), scenarios)

		if len(rep.Results) != n {
			t.Fatalf("got %d results, want %d", len(rep.Results), n)
		}
		for i, res := range rep.Results {
			if res.ID != i+1 {
				t.Fatalf("result %d has id %d", i, res.ID)
			}
		}
		if rep.Passed != wantPassed || rep.Passed+rep.Failed+rep.Skipped != n {
			t.Fatalf("counts %d/%d/%d for %v", rep.Passed, rep.Failed, rep.Skipped, kinds)
		}
		sessions := f.Sessions()
		if len(sessions) != n || f.Live() != 0 || (n > 0 && f.MaxLive() != 1) {
			t.Fatalf("sessions=%d live=%d max=%d", len(sessions), f.Live(), f.MaxLive())
		}
		for i, s := range sessions {
			if s.Closed() != 1 {
				t.Fatalf("session %d closed %d times", i, s.Closed())
			}
		}
	})
}
