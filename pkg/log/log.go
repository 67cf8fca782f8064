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

package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/walteh/patchrc/pkg/report"
	"github.com/walteh/patchrc/pkg/rule"
	"github.com/walteh/patchrc/pkg/status"
)

// 🎨 Display configuration
const (
	ruleIndent = 6  // spaces to indent rule entries
	ruleWidth  = 28 // Width for the rule id
)

// 🎯 Logger handles structured logging with console output
type Logger struct {
	zlog    zerolog.Logger
	console io.Writer
	mu      sync.Mutex

	// per file tallies, reset by StartFile
	currentFile string
	counts      map[rule.Status]int
}

// 🏭 New creates a new logger
func New(console io.Writer, level zerolog.Level) *Logger {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger().Level(level)
	return &Logger{
		zlog:    zlog,
		console: console,
		mu:      sync.Mutex{},
		counts:  make(map[rule.Status]int),
	}
}

// 🔑 contextKey is the type for context values
type contextKey struct{}

// 🎯 FromContext gets the logger from context
func FromContext(ctx context.Context) *Logger {
	logger, ok := ctx.Value(contextKey{}).(*Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

// 🎯 NewContext adds the logger to context
func NewContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// 📝 formatRule formats one rule outcome for display
func formatRule(e report.Entry) string {
	var symbol rune
	var symbolColor color.Attribute
	switch e.Status {
	case rule.Applied:
		symbol = '+'
		symbolColor = color.FgGreen
	case rule.SkippedAlreadyApplied:
		symbol = '='
		symbolColor = color.FgCyan
	case rule.Aborted:
		symbol = '~'
		symbolColor = color.FgYellow
	default:
		symbol = '!'
		symbolColor = color.FgRed
	}

	line := fmt.Sprintf("%s%s %s %s",
		strings.Repeat(" ", ruleIndent),
		color.New(symbolColor).Sprint(string(symbol)),
		fmt.Sprintf("%-*s", ruleWidth, e.RuleID),
		color.New(symbolColor).Sprint(e.Status.String()))
	if e.Reason != "" {
		line += color.New(color.Faint).Sprint(" • " + e.Reason)
	}
	return line
}

// 📝 StartFile starts the output for one target file
func (l *Logger) StartFile(ctx context.Context, path string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentFile = path
	l.counts = make(map[rule.Status]int)

	fmt.Fprintf(l.console, "[patching %s]\n", color.New(color.FgCyan).Sprint(path))

	l.zlog.Debug().Str("path", path).Msg("starting file")
}

// 📝 LogRule logs the outcome of one rule
func (l *Logger) LogRule(ctx context.Context, e report.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counts[e.Status]++

	fmt.Fprintln(l.console, formatRule(e))

	l.zlog.Info().
		Str("path", e.Path).
		Str("rule", e.RuleID).
		Str("status", e.Status.String()).
		Str("reason", e.Reason).
		Msg("rule outcome")
}

// 📝 EndFile logs the end state of the current file
func (l *Logger) EndFile(ctx context.Context, f report.FileResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	detail := fmt.Sprintf("%d applied, %d skipped", l.counts[rule.Applied], l.counts[rule.SkippedAlreadyApplied])
	if f.State == status.StateRolledBack {
		detail = f.Reason
	}
	fmt.Fprintln(l.console, status.FormatFileLine(f.Path, f.State, f.Changed, detail))

	if f.Diff != "" {
		for _, line := range strings.SplitAfter(strings.TrimSuffix(f.Diff, "\n"), "\n") {
			fmt.Fprint(l.console, colorDiffLine(strings.TrimSuffix(line, "\n"))+"\n")
		}
	}

	l.zlog.Info().
		Str("path", f.Path).
		Str("state", f.State.String()).
		Bool("changed", f.Changed).
		Str("before", f.BeforeHash).
		Str("after", f.AfterHash).
		Msg("file complete")

	l.currentFile = ""
}

func colorDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return color.New(color.Bold).Sprint(line)
	case strings.HasPrefix(line, "+"):
		return color.GreenString("%s", line)
	case strings.HasPrefix(line, "-"):
		return color.RedString("%s", line)
	case strings.HasPrefix(line, "@@"):
		return color.CyanString("%s", line)
	default:
		return line
	}
}

// 📝 LogReport prints every file and rule of a finished run
func (l *Logger) LogReport(ctx context.Context, rep *report.Report) {
	for _, f := range rep.Files {
		l.StartFile(ctx, f.Path)
		for _, e := range rep.EntriesFor(f.Path) {
			l.LogRule(ctx, e)
		}
		l.EndFile(ctx, f)
	}

	l.LogNewline()
	if rep.OK() {
		l.Success(rep.Summary())
	} else {
		l.Warning(rep.Summary())
	}
}

// 📝 LogNewline logs a newline
func (l *Logger) LogNewline() {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.console)
}

// 📝 Header logs a header
func (l *Logger) Header(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	patchrcText := color.New(color.Bold, color.FgCyan).Sprint("patchrc")
	fmt.Fprintf(l.console, "\n%s %s\n\n", patchrcText, color.New(color.Faint).Sprint("• "+msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Success logs a success message
func (l *Logger) Success(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "✅ %s\n", color.New(color.FgGreen).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Warning logs a warning message
func (l *Logger) Warning(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "⚠️  %s\n", color.New(color.FgYellow).Sprint(msg))
	l.zlog.Warn().Msg(msg)
}

// 📝 Info logs an info message
func (l *Logger) Info(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.console, "ℹ️  %s\n", color.New(color.FgCyan).Sprint(msg))
	l.zlog.Info().Msg(msg)
}

// 📝 Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Info(fmt.Sprintf(format, args...))
}

// 📝 Warningf logs a formatted warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	l.Warning(fmt.Sprintf(format, args...))
}
