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

package text

import (
	"context"
	"strconv"

	"gitlab.com/tozd/go/errors"
)

// 🔢 Occurrences is an expected match count
type Occurrences int

// AnyCount accepts one or more matches
const AnyCount Occurrences = -1

// Exactly returns an expectation of exactly n matches
func Exactly(n int) Occurrences { return Occurrences(n) }

// Check reports whether n matches satisfy the expectation
func (o Occurrences) Check(n int) bool {
	if o == AnyCount {
		return n >= 1
	}
	return n == int(o)
}

func (o Occurrences) String() string {
	if o == AnyCount {
		return "any"
	}
	return strconv.Itoa(int(o))
}

// ParseOccurrences parses "any" or a non-negative integer
func ParseOccurrences(s string) (Occurrences, error) {
	if s == "any" {
		return AnyCount, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.Errorf("invalid occurrence count %q: want a non-negative integer or \"any\"", s)
	}
	return Occurrences(n), nil
}

// 🔎 Find evaluates pattern against buf and returns the matched spans in
// document order. The buffer is never modified. An empty result is not an error.
func Find(ctx context.Context, buf *Buffer, pattern Pattern) ([]Span, error) {
	if pattern == nil {
		return nil, errors.Errorf("%w: nil pattern", ErrMalformedPattern)
	}
	if buf == nil {
		return nil, errors.New("nil buffer")
	}
	return pattern.find(ctx, buf)
}

// Count returns the number of spans pattern matches in buf
func Count(ctx context.Context, buf *Buffer, pattern Pattern) (int, error) {
	spans, err := Find(ctx, buf, pattern)
	if err != nil {
		return 0, err
	}
	return len(spans), nil
}
