// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rule evaluates a single declarative edit against a buffer.
package rule

import (
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/text"
)

var (
	// ErrPreconditionNotMet means the match count did not meet the rule's expectation
	ErrPreconditionNotMet = errors.Base("precondition not met")

	// ErrPostconditionNotMet means a transform ran but the result has the wrong shape
	ErrPostconditionNotMet = errors.Base("postcondition not met")

	// ErrIO means a file could not be read, written or locked
	ErrIO = errors.Base("io error")

	// ErrAborted means the rule was not attempted or its effect was discarded
	ErrAborted = errors.Base("aborted")
)

// 📝 Rule is one declarative, idempotent edit of one file
type Rule struct {
	// ID is unique within its target file
	ID string
	// Path is the target file
	Path string

	// Match locates the spans to transform. It may be nil only for Append.
	Match text.Pattern
	// Expect is how many times Match must match. Zero means exactly one.
	Expect text.Occurrences
	// ExpectNone requires Match to find nothing
	ExpectNone bool

	Kind    text.Kind
	Payload string

	// SkipIf marks the rule as already applied when it matches. When nil the
	// payload itself is used, or for empty payloads the absence of Match.
	SkipIf text.Pattern

	// Verify overrides the default postcondition
	Verify *Postcondition
}

// ✅ Postcondition must hold on the buffer a transform produced
type Postcondition struct {
	// Match, when set, must match Expect times (zero Expect means exactly one)
	Match  text.Pattern
	Expect text.Occurrences
	// ExpectNone requires Match to find nothing after the edit
	ExpectNone bool
	// Syntax names a tree-sitter language; the edit must not add syntax errors
	Syntax string
}

// Expectation returns the effective precondition count
func (r Rule) Expectation() text.Occurrences {
	if r.ExpectNone {
		return text.Exactly(0)
	}
	if r.Expect == 0 {
		return text.Exactly(1)
	}
	return r.Expect
}

func (p Postcondition) expectation() text.Occurrences {
	if p.ExpectNone {
		return text.Exactly(0)
	}
	if p.Expect == 0 {
		return text.Exactly(1)
	}
	return p.Expect
}

// 🔍 Validate checks that the rule is well formed. It does not read any file.
func (r Rule) Validate() error {
	if r.ID == "" {
		return errors.Errorf("rule id is required")
	}
	if r.Path == "" {
		return errors.Errorf("rule %s: path is required", r.ID)
	}
	if r.Kind == text.KindUnknown || r.Kind.String() == "unknown" {
		return errors.Errorf("rule %s: action is required", r.ID)
	}
	if r.Match == nil && r.Kind != text.Append {
		return errors.Errorf("rule %s: match is required for %s", r.ID, r.Kind)
	}
	if r.ExpectNone && r.Kind != text.Append {
		return errors.Errorf("rule %s: expecting no matches only makes sense for append", r.ID)
	}
	if r.Expect < text.AnyCount {
		return errors.Errorf("rule %s: invalid expect %d", r.ID, r.Expect)
	}
	if _, ok := r.Match.(text.LineRange); ok && r.Kind == text.DeleteSpan && r.SkipIf == nil {
		return errors.Errorf("rule %s: deleting a line range needs skip_if to stay idempotent", r.ID)
	}
	if r.Payload == "" && r.Kind != text.DeleteSpan {
		return errors.Errorf("rule %s: payload is required for %s", r.ID, r.Kind)
	}
	if r.Verify != nil {
		if r.Verify.Match == nil && r.Verify.Syntax == "" {
			return errors.Errorf("rule %s: verify needs a match or a syntax", r.ID)
		}
		if r.Verify.Syntax != "" && !supported(r.Verify.Syntax) {
			return errors.Errorf("rule %s: unsupported syntax %q", r.ID, r.Verify.Syntax)
		}
	}
	return nil
}

// Err maps a failed outcome to its error class, or nil for successes
func (o Outcome) Err() error {
	switch o.Status {
	case Applied, SkippedAlreadyApplied:
		return nil
	case FailedPrecondition:
		return errors.Errorf("%w: %s", ErrPreconditionNotMet, o.Reason)
	case FailedVerification:
		return errors.Errorf("%w: %s", ErrPostconditionNotMet, o.Reason)
	case FailedIO:
		return errors.Errorf("%w: %s", ErrIO, o.Reason)
	default:
		return errors.Errorf("%w: %s", ErrAborted, o.Reason)
	}
}

func supported(language string) bool {
	for _, l := range text.Languages() {
		if l == language {
			return true
		}
	}
	return false
}
