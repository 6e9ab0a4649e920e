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

// readrun prints run reports stored by the journeys binary. Without
// arguments it lists the stored runs.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/c2FmZQ/storage"
	"github.com/c2FmZQ/storage/crypto"
	"github.com/ttbt-io/journeys/harness"
)

var (
	dataDir = flag.String("data-dir", envOr("JOURNEYS_DATA_DIR", "data"), "Directory holding the run history")
	diff    = flag.Bool("diff", false, "Print the changes against the previous run instead of the report")
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	flag.Parse()

	keyFile := filepath.Join(*dataDir, "master.key")
	var masterKey crypto.MasterKey
	if passphrase := os.Getenv("JOURNEYS_MASTER_KEY"); passphrase != "" {
		var err error
		if masterKey, err = crypto.ReadMasterKey([]byte(passphrase), keyFile); err != nil {
			log.Fatalf("Failed to read master key: %v", err)
		}
	} else if _, err := os.Stat(keyFile); err == nil {
		log.Fatalf("%s exists but JOURNEYS_MASTER_KEY is not set. Refusing to read encrypted data in unencrypted mode.", keyFile)
	}
	history := harness.NewHistory(*dataDir, storage.New(*dataDir, masterKey))

	runs, err := history.List()
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if flag.NArg() == 0 {
		for _, r := range runs {
			fmt.Printf("%s  %s  %d passed, %d failed, %d skipped\n",
				r.RunID, r.Started.Local().Format("2006-01-02 15:04:05"), r.Passed, r.Failed, r.Skipped)
		}
		return
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, id := range flag.Args() {
		rep, err := history.Load(id)
		if err != nil {
			log.Printf("%s: %v", id, err)
			continue
		}
		fmt.Printf("=========== %s ===========\n", id)
		if !*diff {
			if err := enc.Encode(rep); err != nil {
				log.Printf("JSON: %s: %v", id, err)
			}
			continue
		}
		prev, ok := previous(runs, id)
		if !ok {
			fmt.Println("No earlier run.")
			continue
		}
		prevRep, err := history.Load(prev)
		if err != nil {
			log.Printf("%s: %v", prev, err)
			continue
		}
		d, err := harness.DiffReports(prevRep, rep)
		if err != nil {
			log.Printf("diff %s: %v", id, err)
			continue
		}
		if d == "" {
			fmt.Printf("No changes since run %s.\n", prev)
			continue
		}
		fmt.Print(d)
	}
}

// previous returns the run stored just before id.
func previous(runs []harness.RunSummary, id string) (string, bool) {
	for i, r := range runs {
		if r.RunID == id && i > 0 {
			return runs[i-1].RunID, true
		}
	}
	return "", false
}
