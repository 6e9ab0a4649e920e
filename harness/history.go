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
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/c2FmZQ/storage"
)

// DefaultMaxRuns is how many reports a History keeps.
const DefaultMaxRuns = 50

const indexFilename = "runs/index.json"

// RunSummary is the index entry of a stored report.
type RunSummary struct {
	RunID   string    `json:"runId"`
	Started time.Time `json:"started"`
	Passed  int       `json:"passed"`
	Failed  int       `json:"failed"`
	Skipped int       `json:"skipped"`
}

type runIndex struct {
	Runs []RunSummary `json:"runs"` // oldest first
}

// History persists run reports, encrypted when the storage has a master key.
type History struct {
	DataDir string
	MaxRuns int
	storage *storage.Storage
	mu      sync.Mutex
}

// NewHistory creates a History rooted at dataDir.
func NewHistory(dataDir string, s *storage.Storage) *History {
	return &History{
		DataDir: dataDir,
		MaxRuns: DefaultMaxRuns,
		storage: s,
	}
}

func runFilename(runID string) string {
	return filepath.Join("runs", fmt.Sprintf("%s.json", url.PathEscape(runID)))
}

// Save stores rep and records it in the index, pruning the oldest reports
// beyond MaxRuns.
func (h *History) Save(rep Report) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.storage.SaveDataFile(runFilename(rep.RunID), &rep); err != nil {
		return fmt.Errorf("storage.SaveDataFile: %w", err)
	}

	idx, err := h.readIndex()
	if err != nil {
		return err
	}
	idx.Runs = append(idx.Runs, RunSummary{
		RunID:   rep.RunID,
		Started: rep.Started,
		Passed:  rep.Passed,
		Failed:  rep.Failed,
		Skipped: rep.Skipped,
	})
	if h.MaxRuns > 0 && len(idx.Runs) > h.MaxRuns {
		drop := idx.Runs[:len(idx.Runs)-h.MaxRuns]
		idx.Runs = idx.Runs[len(idx.Runs)-h.MaxRuns:]
		for _, r := range drop {
			if err := os.Remove(filepath.Join(h.DataDir, runFilename(r.RunID))); err != nil && !errors.Is(err, os.ErrNotExist) {
				log.Printf("[history] prune %s: %v", r.RunID, err)
			}
		}
	}
	if err := h.storage.SaveDataFile(indexFilename, &idx); err != nil {
		return fmt.Errorf("storage.SaveDataFile (index): %w", err)
	}
	return nil
}

// Load reads the report of runID.
func (h *History) Load(runID string) (Report, error) {
	var rep Report
	if err := h.storage.ReadDataFile(runFilename(runID), &rep); err != nil {
		return Report{}, err
	}
	return rep, nil
}

// List returns the stored runs, oldest first.
func (h *History) List() ([]RunSummary, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	idx, err := h.readIndex()
	if err != nil {
		return nil, err
	}
	return idx.Runs, nil
}

// Latest returns the most recent stored report. ok is false when the
// history is empty.
func (h *History) Latest() (rep Report, ok bool, err error) {
	runs, err := h.List()
	if err != nil || len(runs) == 0 {
		return Report{}, false, err
	}
	rep, err = h.Load(runs[len(runs)-1].RunID)
	if err != nil {
		return Report{}, false, err
	}
	return rep, true, nil
}

func (h *History) readIndex() (runIndex, error) {
	var idx runIndex
	if err := h.storage.ReadDataFile(indexFilename, &idx); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return runIndex{}, nil
		}
		return runIndex{}, fmt.Errorf("storage.ReadDataFile (index): %w", err)
	}
	return idx, nil
}
