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

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/ttbt-io/journeys/browser"
	"github.com/ttbt-io/journeys/harness"
	"github.com/ttbt-io/journeys/journeys"
)

var (
	baseURL           = flag.String("base-url", envOr("JOURNEYS_BASE_URL", "http://localhost:8080"), "Base URL of the application under test")
	chromeURL         = flag.String("chrome-url", os.Getenv("JOURNEYS_CHROME_URL"), "DevTools URL of a running browser. When empty, a local browser is launched.")
	chromePath        = flag.String("chrome-path", os.Getenv("JOURNEYS_CHROME_PATH"), "Path to the local browser binary")
	headless          = flag.Bool("headless", true, "Run the local browser headless")
	windowSize        = flag.String("window-size", "1920,1080", "Browser window size as WIDTH,HEIGHT")
	runQuery          = flag.String("run", "", `Scenarios to run, e.g. "id:3..6", "tag:auth" or "valid login"`)
	scenarioTimeout   = flag.Duration("scenario-timeout", harness.DefaultScenarioTimeout, "Upper bound for a single scenario")
	locatorsFile      = flag.String("locators", os.Getenv("JOURNEYS_LOCATORS"), "YAML file overriding the built-in locators")
	skipDependents    = flag.Bool("skip-dependents", false, "Skip scenarios whose prerequisite did not pass")
	dataDir           = flag.String("data-dir", os.Getenv("JOURNEYS_DATA_DIR"), "Directory for run history. History is disabled when empty.")
	reportJSON        = flag.String("report-json", "", "Write the run report to this file")
	screenshotDir     = flag.String("screenshot-dir", "", "Directory for failure screenshots")
	tokenCookie       = flag.String("token-cookie", "", "Name of the session cookie to check after a valid login")
	jwksURL           = flag.String("jwks-url", "", "JWKS endpoint used to verify the session token")
	disableAnimations = flag.Bool("disable-animations", true, "Disable CSS animations after each navigation")
	debugMode         = flag.Bool("debug", false, "Enable debug mode")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// main runs the journeys once against -base-url and prints one line per
// scenario.
func main() {
	flag.Parse()

	width, height, err := parseWindowSize(*windowSize)
	if err != nil {
		log.Fatalf("Invalid --window-size: %v", err)
	}

	locators, err := journeys.LoadLocators(*locatorsFile)
	if err != nil {
		log.Fatalf("Failed to load locators: %v", err)
	}

	suite := &journeys.Suite{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Locators:    locators,
		TokenCookie: *tokenCookie,
	}
	if *tokenCookie != "" {
		suite.Tokens = journeys.NewTokenVerifier(*jwksURL)
	}
	scenarios, err := harness.Select(suite.Scenarios(), *runQuery)
	if err != nil {
		log.Fatalf("Failed to select scenarios: %v", err)
	}
	if len(scenarios) == 0 {
		log.Fatalf("No scenario matches %q", *runQuery)
	}

	var history *harness.History
	if *dataDir != "" {
		history = openHistory(*dataDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *chromeURL != "" {
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		v, err := browser.Preflight(pctx, *chromeURL)
		cancel()
		if err != nil {
			log.Fatalf("Browser preflight failed: %v", err)
		}
		log.Printf("Connected to %s (protocol %s)", v.Product, v.ProtocolVersion)
	}

	b, err := browser.New(ctx, browser.Options{
		RemoteURL:         *chromeURL,
		ExecPath:          *chromePath,
		Headless:          *headless,
		Width:             width,
		Height:            height,
		BaseURL:           suite.BaseURL,
		DisableAnimations: *disableAnimations,
		Debug:             *debugMode,
	})
	if err != nil {
		log.Fatalf("Failed to set up browser: %v", err)
	}
	defer b.Close()

	fx := harness.NewFixture(rand.New(rand.NewPCG(rand.Uint64(), uint64(time.Now().UnixNano()))))
	fmt.Printf("Test user: %s\n", fx.Username)

	runner := &harness.Runner{
		Sessions:        b,
		Fixture:         fx,
		Out:             os.Stdout,
		ScenarioTimeout: *scenarioTimeout,
		SkipDependents:  *skipDependents,
		ScreenshotDir:   *screenshotDir,
	}
	rep := runner.RunAll(ctx, scenarios)
	rep.BaseURL = suite.BaseURL
	if err := rep.WriteSummary(os.Stdout); err != nil {
		log.Printf("Failed to write summary: %v", err)
	}

	if *reportJSON != "" {
		if err := rep.WriteJSON(*reportJSON); err != nil {
			log.Printf("Failed to write report: %v", err)
		}
	}
	if history != nil {
		recordRun(history, rep)
	}
}

// openHistory sets up the run history, encrypted when JOURNEYS_MASTER_KEY
// is set.
func openHistory(dir string) *harness.History {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}
	keyFile := filepath.Join(dir, "master.key")

	var masterKey crypto.MasterKey
	if passphrase := os.Getenv("JOURNEYS_MASTER_KEY"); passphrase != "" {
		var err error
		masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Fatalf("Failed to read master key: %v", err)
			}
			log.Println("Initializing new master encryption key...")
			if masterKey, err = crypto.CreateMasterKey(); err != nil {
				log.Fatalf("Failed to create master key: %v", err)
			}
			if err := masterKey.Save([]byte(passphrase), keyFile); err != nil {
				log.Fatalf("Failed to save master key: %v", err)
			}
		}
	} else {
		if _, err := os.Stat(keyFile); err == nil {
			log.Fatalf("%s exists but JOURNEYS_MASTER_KEY is not set. Refusing to read or write run history unencrypted.", keyFile)
		}
		if *debugMode {
			log.Println("No JOURNEYS_MASTER_KEY provided. Run history is stored unencrypted.")
		}
	}

	store := storage.New(dir, masterKey)
	store.EnableCompression(true)
	return harness.NewHistory(dir, store)
}

// recordRun prints what changed since the previous stored run and stores
// rep.
func recordRun(h *harness.History, rep harness.Report) {
	prev, ok, err := h.Latest()
	if err != nil {
		log.Printf("Failed to load previous run: %v", err)
	}
	if ok {
		diff, err := harness.DiffReports(prev, rep)
		switch {
		case err != nil:
			log.Printf("Failed to diff runs: %v", err)
		case diff == "":
			fmt.Printf("No changes since run %s.\n", prev.RunID)
		default:
			fmt.Printf("\nChanges since run %s:\n%s", prev.RunID, diff)
		}
	}
	if err := h.Save(rep); err != nil {
		log.Printf("Failed to save run %s: %v", rep.RunID, err)
		return
	}
	log.Printf("Saved run %s", rep.RunID)
}

func parseWindowSize(s string) (int, int, error) {
	w, h, ok := strings.Cut(s, ",")
	if !ok {
		return 0, 0, fmt.Errorf("%q is not WIDTH,HEIGHT", s)
	}
	width, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0, fmt.Errorf("width: %w", err)
	}
	height, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0, fmt.Errorf("height: %w", err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("%q: dimensions must be positive", s)
	}
	return width, height, nil
}
