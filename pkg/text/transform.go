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
	"strings"

	"gitlab.com/tozd/go/errors"
)

// ✂️ Kind is the type of edit a transform performs
type Kind int

const (
	KindUnknown Kind = iota
	InsertBefore
	InsertAfter
	ReplaceSpan
	DeleteSpan
	Append
)

var kindNames = map[Kind]string{
	InsertBefore: "insert_before",
	InsertAfter:  "insert_after",
	ReplaceSpan:  "replace",
	DeleteSpan:   "delete",
	Append:       "append",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Destructive reports whether the kind removes the text it matched
func (k Kind) Destructive() bool {
	return k == ReplaceSpan || k == DeleteSpan
}

// ParseKind parses a snake_case kind name
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return KindUnknown, errors.Errorf("unknown action %q", s)
}

// 🔄 Apply splices payload into buf at spans and returns the new buffer.
// Spans must be sorted and must not overlap. Append ignores spans and adds
// payload once at the end. The input buffer is left untouched.
func Apply(buf *Buffer, spans []Span, kind Kind, payload string) (*Buffer, error) {
	if buf == nil {
		return nil, errors.New("nil buffer")
	}

	if kind == Append {
		return newBuffer(buf.path, buf.content+payload), nil
	}
	if _, ok := kindNames[kind]; !ok {
		return nil, errors.Errorf("unknown transform kind %d", kind)
	}

	for i, s := range spans {
		if s.Start < 0 || s.End > len(buf.content) || s.Start > s.End {
			return nil, errors.Errorf("span %d [%d,%d) outside buffer of %d bytes", i, s.Start, s.End, len(buf.content))
		}
		if i > 0 && spans[i-1].End > s.Start {
			return nil, errors.Errorf("span %d overlaps or precedes span %d", i, i-1)
		}
	}

	var out strings.Builder
	out.Grow(len(buf.content) + len(spans)*len(payload))

	last := 0
	for _, s := range spans {
		cutStart, cutEnd := s.Start, s.End
		switch kind {
		case InsertBefore:
			at := s.Start
			if s.Delimited {
				at = s.CloseStart
			}
			cutStart, cutEnd = at, at
		case InsertAfter:
			at := s.End
			if s.Delimited {
				at = s.OpenEnd
			}
			cutStart, cutEnd = at, at
		}
		out.WriteString(buf.content[last:cutStart])
		if kind != DeleteSpan {
			out.WriteString(payload)
		}
		last = cutEnd
	}
	out.WriteString(buf.content[last:])

	return newBuffer(buf.path, out.String()), nil
}

// EditWindows returns, for each span, the region [start, end) of the new
// buffer that Apply wrote. Windows are in new-buffer offsets.
func EditWindows(spans []Span, kind Kind, payload string, oldLen int) [][2]int {
	if kind == Append {
		return [][2]int{{oldLen, oldLen + len(payload)}}
	}
	windows := make([][2]int, 0, len(spans))
	shift := 0
	for _, s := range spans {
		var at, removed, inserted int
		switch kind {
		case InsertBefore:
			at = s.Start
			if s.Delimited {
				at = s.CloseStart
			}
			inserted = len(payload)
		case InsertAfter:
			at = s.End
			if s.Delimited {
				at = s.OpenEnd
			}
			inserted = len(payload)
		case ReplaceSpan:
			at, removed, inserted = s.Start, s.Len(), len(payload)
		case DeleteSpan:
			at, removed = s.Start, s.Len()
		}
		windows = append(windows, [2]int{at + shift, at + shift + inserted})
		shift += inserted - removed
	}
	return windows
}
