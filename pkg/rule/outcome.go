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

package rule

import (
	"encoding/json"
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// 📊 Status is the result class of applying one rule
type Status int

const (
	StatusUnknown Status = iota
	Applied
	SkippedAlreadyApplied
	FailedPrecondition
	FailedVerification
	FailedIO
	// Aborted rules were not attempted, or were discarded when the file rolled back
	Aborted
)

var statusNames = map[Status]string{
	Applied:               "applied",
	SkippedAlreadyApplied: "skipped-already-applied",
	FailedPrecondition:    "failed-precondition",
	FailedVerification:    "failed-verification",
	FailedIO:              "failed-io",
	Aborted:               "aborted",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Statuses returns every known status in declaration order
func Statuses() []Status {
	return []Status{Applied, SkippedAlreadyApplied, FailedPrecondition, FailedVerification, FailedIO, Aborted}
}

// MarshalJSON encodes the status by name
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status name
func (s *Status) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return errors.Errorf("decoding status: %w", err)
	}
	for k, v := range statusNames {
		if v == name {
			*s = k
			return nil
		}
	}
	return errors.Errorf("unknown status %q", name)
}

// 🏷️ Outcome is the immutable result of one rule in one run
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Failed reports whether the outcome is a failure
func (o Outcome) Failed() bool {
	switch o.Status {
	case Applied, SkippedAlreadyApplied:
		return false
	default:
		return true
	}
}

func (o Outcome) String() string {
	if o.Reason == "" {
		return o.Status.String()
	}
	return fmt.Sprintf("%s: %s", o.Status, o.Reason)
}

func applied() Outcome { return Outcome{Status: Applied} }

func skipped(reason string) Outcome {
	return Outcome{Status: SkippedAlreadyApplied, Reason: reason}
}

func failedPrecondition(format string, args ...any) Outcome {
	return Outcome{Status: FailedPrecondition, Reason: fmt.Sprintf(format, args...)}
}

func failedVerification(format string, args ...any) Outcome {
	return Outcome{Status: FailedVerification, Reason: fmt.Sprintf(format, args...)}
}

// IOFailure builds a FailedIO outcome from err
func IOFailure(err error) Outcome {
	return Outcome{Status: FailedIO, Reason: err.Error()}
}

// AbortedBecause builds an Aborted outcome
func AbortedBecause(format string, args ...any) Outcome {
	return Outcome{Status: Aborted, Reason: fmt.Sprintf(format, args...)}
}
