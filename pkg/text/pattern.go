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
	"fmt"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

var (
	// ErrMalformedPattern means a pattern cannot be evaluated against a buffer
	ErrMalformedPattern = errors.Base("malformed pattern")

	// ErrOutOfRange means a line range points past the end of the buffer
	ErrOutOfRange = errors.Base("line range out of range")
)

// 🎯 Pattern describes what to find in a buffer
type Pattern interface {
	// String returns a short human description of the pattern
	String() string

	find(ctx context.Context, buf *Buffer) ([]Span, error)
}

// Literal matches an exact substring
type Literal struct {
	Text string
}

func (p Literal) String() string { return "literal " + strconv.Quote(p.Text) }

func (p Literal) find(_ context.Context, buf *Buffer) ([]Span, error) {
	if p.Text == "" {
		return nil, errors.Errorf("%w: empty literal", ErrMalformedPattern)
	}
	var spans []Span
	off := 0
	for {
		idx := strings.Index(buf.content[off:], p.Text)
		if idx < 0 {
			return spans, nil
		}
		start := off + idx
		spans = append(spans, Span{Start: start, End: start + len(p.Text)})
		off = start + len(p.Text)
	}
}

// AnchoredBlock matches from a start marker to the next end marker after it
type AnchoredBlock struct {
	Start string
	End   string
}

func (p AnchoredBlock) String() string {
	return fmt.Sprintf("block %s..%s", strconv.Quote(p.Start), strconv.Quote(p.End))
}

func (p AnchoredBlock) find(_ context.Context, buf *Buffer) ([]Span, error) {
	if p.Start == "" || p.End == "" {
		return nil, errors.Errorf("%w: anchored block needs both markers", ErrMalformedPattern)
	}
	var spans []Span
	off := 0
	for {
		idx := strings.Index(buf.content[off:], p.Start)
		if idx < 0 {
			return spans, nil
		}
		start := off + idx
		openEnd := start + len(p.Start)
		closeIdx := strings.Index(buf.content[openEnd:], p.End)
		if closeIdx < 0 {
			return nil, errors.Errorf("%w: anchor %q at offset %d never closes with %q", ErrMalformedPattern, p.Start, start, p.End)
		}
		closeStart := openEnd + closeIdx
		end := closeStart + len(p.End)
		spans = append(spans, Span{
			Start:      start,
			End:        end,
			Delimited:  true,
			OpenEnd:    openEnd,
			CloseStart: closeStart,
		})
		off = end
	}
}

// LineRange matches whole lines Start..End (1-based, inclusive)
type LineRange struct {
	Start int
	End   int
}

func (p LineRange) String() string { return fmt.Sprintf("lines %d-%d", p.Start, p.End) }

// OverlapsLines reports whether two line ranges share a line
func (p LineRange) OverlapsLines(other LineRange) bool {
	return p.Start <= other.End && other.Start <= p.End
}

func (p LineRange) find(_ context.Context, buf *Buffer) ([]Span, error) {
	if p.Start < 1 || p.End < p.Start {
		return nil, errors.Errorf("%w: invalid line range %d-%d", ErrMalformedPattern, p.Start, p.End)
	}
	if n := buf.LineCount(); p.End > n {
		return nil, errors.Errorf("%w: lines %d-%d requested, buffer has %d", ErrOutOfRange, p.Start, p.End, n)
	}
	start, _ := buf.LineOffset(p.Start)
	end, _ := buf.LineOffset(p.End + 1)
	return []Span{{Start: start, End: end}}, nil
}

// IsPatternError reports whether err came from evaluating a pattern
func IsPatternError(err error) bool {
	return errors.Is(err, ErrMalformedPattern) || errors.Is(err, ErrOutOfRange)
}
