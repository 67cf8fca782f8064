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
	"strings"

	"github.com/rs/zerolog"

	"github.com/walteh/patchrc/pkg/text"
)

// 🏃 Evaluate applies r to buf.
//
// On Applied the returned buffer holds the edit. On every other outcome the
// returned buffer is buf itself: a failed rule never leaves a partial edit.
func Evaluate(ctx context.Context, buf *text.Buffer, r Rule) (*text.Buffer, Outcome) {
	logger := zerolog.Ctx(ctx).With().Str("rule", r.ID).Str("path", r.Path).Logger()

	// 1. already applied?
	done, reason, err := alreadyApplied(ctx, buf, r)
	if err != nil {
		return buf, failedPrecondition("%v", err)
	}
	if done {
		logger.Debug().Str("reason", reason).Msg("rule already applied")
		return buf, skipped(reason)
	}

	// 2. precondition
	var spans []text.Span
	if r.Match != nil {
		spans, err = text.Find(ctx, buf, r.Match)
		if err != nil {
			return buf, failedPrecondition("%v", err)
		}
		if want := r.Expectation(); !want.Check(len(spans)) {
			return buf, failedPrecondition("%s matched %d times, want %s", r.Match, len(spans), want)
		}
	}

	// 3. transform
	next, err := text.Apply(buf, spans, r.Kind, r.Payload)
	if err != nil {
		return buf, failedPrecondition("applying %s: %v", r.Kind, err)
	}

	// 4. verify
	if err := Verify(ctx, buf, next, r, spans); err != nil {
		logger.Debug().Err(err).Msg("verification failed, discarding edit")
		return buf, failedVerification("%v", err)
	}

	logger.Debug().Int("spans", len(spans)).Str("hash", next.Hash()).Msg("rule applied")
	return next, applied()
}

func alreadyApplied(ctx context.Context, buf *text.Buffer, r Rule) (bool, string, error) {
	if r.SkipIf != nil {
		n, err := text.Count(ctx, buf, r.SkipIf)
		if err != nil {
			return false, "", err
		}
		if n > 0 {
			return true, r.SkipIf.String() + " already present", nil
		}
		return false, "", nil
	}

	if r.Payload != "" {
		if !strings.Contains(buf.String(), r.Payload) {
			return false, "", nil
		}
		// a replace whose payload is part of the matched text is only done
		// once every remaining match sits inside a payload occurrence
		if r.Kind == text.ReplaceSpan && r.Match != nil {
			n, err := pendingMatches(ctx, buf, r)
			if err != nil {
				return false, "", err
			}
			if n > 0 {
				return false, "", nil
			}
		}
		return true, "payload already present", nil
	}

	// an empty payload deletes; done once nothing is left to delete
	n, err := text.Count(ctx, buf, r.Match)
	if err != nil {
		return false, "", err
	}
	if n == 0 {
		return true, r.Match.String() + " already removed", nil
	}
	return false, "", nil
}

// pendingMatches counts the matches of r that are not covered by an
// occurrence of its payload.
func pendingMatches(ctx context.Context, buf *text.Buffer, r Rule) (int, error) {
	matches, err := text.Find(ctx, buf, r.Match)
	if err != nil {
		return 0, err
	}
	done, err := text.Find(ctx, buf, text.Literal{Text: r.Payload})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, m := range matches {
		if !covered(m, done) {
			n++
		}
	}
	return n, nil
}

func covered(s text.Span, by []text.Span) bool {
	for _, o := range by {
		if o.Start <= s.Start && s.End <= o.End {
			return true
		}
	}
	return false
}
