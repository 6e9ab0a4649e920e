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

import "time"

// Wait budgets
const (
	ClickableTimeout = 2 * time.Second
	ShortTimeout     = 5 * time.Second
	LongTimeout      = 10 * time.Second
)

// Runner defaults
const (
	DefaultScenarioTimeout = 60 * time.Second
	PageExcerptLength      = 500
)
