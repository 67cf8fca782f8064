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
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// 📄 Buffer is an immutable snapshot of a file's text content
type Buffer struct {
	path    string
	content string
	hash    string
}

// 🏭 NewBuffer creates a buffer for the given path and content
func NewBuffer(path string, content []byte) *Buffer {
	return newBuffer(path, string(content))
}

func newBuffer(path, content string) *Buffer {
	sum := sha256.Sum256([]byte(content))
	return &Buffer{
		path:    path,
		content: content,
		hash:    hex.EncodeToString(sum[:]),
	}
}

// Path returns the source path of the buffer
func (b *Buffer) Path() string { return b.path }

// String returns the buffer content
func (b *Buffer) String() string { return b.content }

// Bytes returns a copy of the buffer content
func (b *Buffer) Bytes() []byte { return []byte(b.content) }

// Hash returns the hex encoded SHA-256 of the content
func (b *Buffer) Hash() string { return b.hash }

// Len returns the content length in bytes
func (b *Buffer) Len() int { return len(b.content) }

// Equal reports whether both buffers hold the same content
func (b *Buffer) Equal(other *Buffer) bool {
	if b == nil || other == nil {
		return b == other
	}
	return b.hash == other.hash
}

// LineCount returns the number of lines. A trailing newline does not start a new line.
func (b *Buffer) LineCount() int {
	if b.content == "" {
		return 0
	}
	n := strings.Count(b.content, "\n")
	if !strings.HasSuffix(b.content, "\n") {
		n++
	}
	return n
}

// LineOffset returns the byte offset where 1-based line n starts.
// Line LineCount()+1 maps to the end of the buffer.
func (b *Buffer) LineOffset(n int) (int, bool) {
	if n < 1 || n > b.LineCount()+1 {
		return 0, false
	}
	off := 0
	for line := 1; line < n; line++ {
		idx := strings.IndexByte(b.content[off:], '\n')
		if idx < 0 {
			return len(b.content), true
		}
		off += idx + 1
	}
	return off, true
}

// 🔍 Span is a located region [Start, End) within a buffer
type Span struct {
	Start int
	End   int

	// Delimited spans come from anchored blocks. OpenEnd is the offset just
	// past the opening marker and CloseStart is the offset of the closing marker.
	Delimited  bool
	OpenEnd    int
	CloseStart int
}

// Len returns the span width in bytes
func (s Span) Len() int { return s.End - s.Start }

// Text returns the spanned text of buf
func (s Span) Text(buf *Buffer) string {
	return buf.content[s.Start:s.End]
}

// Overlaps reports whether two spans share at least one byte
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}
