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
	"context"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/patchrc/pkg/text"
)

var dmp = diffmatchpatch.New()

// ✅ Verify proves the result of a transform: before is the buffer the rule
// saw, after is what the transform produced from spans.
func Verify(ctx context.Context, before, after *text.Buffer, r Rule, spans []text.Span) error {
	if err := verifyEditRegion(before, after, r, spans); err != nil {
		return err
	}

	if r.Verify != nil && r.Verify.Match != nil {
		n, err := text.Count(ctx, after, r.Verify.Match)
		if err != nil {
			return errors.Errorf("%w: %v", ErrPostconditionNotMet, err)
		}
		if want := r.Verify.expectation(); !want.Check(n) {
			return errors.Errorf("%w: %s matched %d times after edit, want %s", ErrPostconditionNotMet, r.Verify.Match, n, want)
		}
	} else if err := verifyDefault(ctx, before, after, r, spans); err != nil {
		return err
	}

	if r.Verify != nil && r.Verify.Syntax != "" {
		was, err := text.SyntaxErrors(ctx, r.Verify.Syntax, before)
		if err != nil {
			return errors.Errorf("%w: %v", ErrPostconditionNotMet, err)
		}
		now, err := text.SyntaxErrors(ctx, r.Verify.Syntax, after)
		if err != nil {
			return errors.Errorf("%w: %v", ErrPostconditionNotMet, err)
		}
		if now > was {
			return errors.Errorf("%w: edit introduced %s syntax errors (%d before, %d after)", ErrPostconditionNotMet, r.Verify.Syntax, was, now)
		}
	}

	return nil
}

// verifyDefault checks that the payload shows up exactly once per transformed
// span, which also catches secondary matches the edit created by accident.
func verifyDefault(ctx context.Context, before, after *text.Buffer, r Rule, spans []text.Span) error {
	edits := len(spans)
	if r.Kind == text.Append {
		edits = 1
	}

	if r.Payload != "" {
		payload := text.Literal{Text: r.Payload}
		was, err := text.Count(ctx, before, payload)
		if err != nil {
			return errors.Errorf("%w: %v", ErrPostconditionNotMet, err)
		}
		now, err := text.Count(ctx, after, payload)
		if err != nil {
			return errors.Errorf("%w: %v", ErrPostconditionNotMet, err)
		}
		want := was + edits
		if r.Kind.Destructive() {
			// occurrences inside the replaced text go away with it
			gone, err := payloadsWithin(ctx, before, payload, spans)
			if err != nil {
				return errors.Errorf("%w: %v", ErrPostconditionNotMet, err)
			}
			want -= gone
		}
		if now != want {
			return errors.Errorf("%w: payload appears %d times after edit, want %d", ErrPostconditionNotMet, now, want)
		}
		return nil
	}

	// line ranges always match; their deletes are guarded by skip_if instead
	if _, ok := r.Match.(text.LineRange); ok {
		return nil
	}
	was, err := text.Count(ctx, before, r.Match)
	if err != nil {
		return errors.Errorf("%w: %v", ErrPostconditionNotMet, err)
	}
	now, err := text.Count(ctx, after, r.Match)
	if err != nil {
		return errors.Errorf("%w: %v", ErrPostconditionNotMet, err)
	}
	if now != was-edits {
		return errors.Errorf("%w: %s matches %d times after delete, want %d", ErrPostconditionNotMet, r.Match, now, was-edits)
	}
	return nil
}

func payloadsWithin(ctx context.Context, buf *text.Buffer, payload text.Pattern, spans []text.Span) (int, error) {
	found, err := text.Find(ctx, buf, payload)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, f := range found {
		for _, s := range spans {
			if f.Overlaps(s) {
				n++
				break
			}
		}
	}
	return n, nil
}

// verifyEditRegion checks that every byte outside the windows the transform
// was allowed to write is unchanged.
func verifyEditRegion(before, after *text.Buffer, r Rule, spans []text.Span) error {
	old, cur := before.String(), after.String()
	if old == cur {
		return nil
	}

	windows := text.EditWindows(spans, r.Kind, r.Payload, len(old))
	if len(windows) == 0 {
		return errors.Errorf("%w: buffer changed but no span was transformed", ErrPostconditionNotMet)
	}
	lo, hi := windows[0][0], windows[len(windows)-1][1]

	// diffmatchpatch counts runes; the windows are byte offsets
	prefix := prefixBytes(cur, dmp.DiffCommonPrefix(old, cur))
	suffix := suffixBytes(cur, dmp.DiffCommonSuffix(old, cur))
	if prefix < lo || suffix < len(cur)-hi {
		return errors.Errorf("%w: edit changed bytes outside the transformed region [%d,%d)", ErrPostconditionNotMet, lo, hi)
	}
	return nil
}

func prefixBytes(s string, runes int) int {
	off := 0
	for i := 0; i < runes && off < len(s); i++ {
		_, size := utf8.DecodeRuneInString(s[off:])
		off += size
	}
	return off
}

func suffixBytes(s string, runes int) int {
	end := len(s)
	for i := 0; i < runes && end > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(s[:end])
		end -= size
	}
	return len(s) - end
}
