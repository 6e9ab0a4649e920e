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
	"github.com/pmezard/go-difflib/difflib"
)

// DiffReports returns a unified diff of the outlines of prev and cur, or ""
// when every scenario kept its outcome.
func DiffReports(prev, cur Report) (string, error) {
	a, b := prev.Outline(), cur.Outline()
	if a == b {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: "run " + prev.RunID,
		ToFile:   "run " + cur.RunID,
		Context:  1,
	})
}
