// Package format renders log events as terminal lines.
package format

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/jmespath/go-jmespath"
	"github.com/mattn/go-isatty"

	"github.com/Nao-Mk2/aws-lambda-logs/internal/model"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Color modes accepted by ShouldColorize.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

var (
	lambdaMarkers = []string{"START RequestId", "END RequestId", "REPORT RequestId", "INIT_START", "EXTENSION"}
	errorMarkers  = []string{"ERROR", "Error", "Exception", "Task timed out", "panic:", "Traceback"}
)

// Options controls how events are rendered.
type Options struct {
	// Color enables ANSI escapes.
	Color bool
	// Highlight is the filter pattern whose plain terms are highlighted.
	Highlight string
	// Query is a JMESPath expression applied to each message.
	Query string
	// ShowGroup prefixes the stream with its log group.
	ShowGroup bool
	// UTC renders timestamps in UTC instead of local time.
	UTC bool
}

// Formatter renders one line per event: "<stream> <timestamp> <message>".
type Formatter struct {
	opts   Options
	query  *jmespath.JMESPath
	terms  []string
	stream *color.Color
	ts     *color.Color
	hl     *color.Color
	dim    *color.Color
	errc   *color.Color
}

// New builds a Formatter. It fails when the query does not compile.
func New(opts Options) (*Formatter, error) {
	f := &Formatter{
		opts:   opts,
		terms:  highlightTerms(opts.Highlight),
		stream: color.New(color.FgCyan),
		ts:     color.New(color.FgYellow),
		hl:     color.New(color.Bold, color.FgHiWhite, color.BgMagenta),
		dim:    color.New(color.Faint),
		errc:   color.New(color.FgRed),
	}
	for _, c := range []*color.Color{f.stream, f.ts, f.hl, f.dim, f.errc} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	if opts.Query != "" {
		q, err := jmespath.Compile(opts.Query)
		if err != nil {
			return nil, fmt.Errorf("invalid query %q: %w", opts.Query, err)
		}
		f.query = q
	}
	return f, nil
}

// Format renders ev. ok is false when a query is set and yields nothing for
// this event, in which case the event should not be printed.
func (f *Formatter) Format(ev model.LogEvent) (line string, ok bool, err error) {
	msg := strings.TrimRight(ev.Message, "\r\n")

	if f.query != nil {
		msg, ok, err = project(f.query, msg)
		if err != nil || !ok {
			return "", false, err
		}
	} else {
		msg = f.colorMessage(prettyJSON(msg))
	}

	stream := ev.LogStream
	if f.opts.ShowGroup {
		stream = ev.LogGroup + " " + stream
	}
	t := ev.Time()
	if f.opts.UTC {
		t = t.UTC()
	}
	return f.stream.Sprint(stream) + " " + f.ts.Sprint(t.Format(timeLayout)) + " " + msg, true, nil
}

func (f *Formatter) colorMessage(msg string) string {
	switch {
	case hasAny(msg, lambdaMarkers, strings.HasPrefix):
		return f.dim.Sprint(msg)
	case hasAny(msg, errorMarkers, strings.Contains):
		return f.errc.Sprint(f.highlight(msg))
	}
	return f.highlight(msg)
}

func (f *Formatter) highlight(msg string) string {
	for _, t := range f.terms {
		msg = strings.ReplaceAll(msg, t, f.hl.Sprint(t))
	}
	return msg
}

func hasAny(s string, markers []string, match func(string, string) bool) bool {
	for _, m := range markers {
		if match(s, m) {
			return true
		}
	}
	return false
}

// highlightTerms extracts the literal terms of a simple filter pattern.
// JSON and space-delimited patterns are not highlighted, nor are excluded
// terms.
func highlightTerms(pattern string) []string {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.ContainsAny(pattern, "{[") {
		return nil
	}
	var terms []string
	for _, t := range strings.Fields(pattern) {
		if strings.HasPrefix(t, "-") {
			continue
		}
		t = strings.Trim(strings.TrimPrefix(t, "?"), `"`)
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms
}

// prettyJSON indents msg when it is a JSON object or array.
func prettyJSON(msg string) string {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') || !json.Valid([]byte(trimmed)) {
		return msg
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(trimmed), "", "  "); err != nil {
		return msg
	}
	return buf.String()
}

// ShouldColorize resolves a color mode against the output writer. In auto
// mode color is used only when w is a terminal and NO_COLOR is unset.
func ShouldColorize(mode string, w io.Writer) (bool, error) {
	switch mode {
	case ColorAlways:
		return true, nil
	case ColorNever:
		return false, nil
	case ColorAuto, "":
		if os.Getenv("NO_COLOR") != "" {
			return false, nil
		}
		fd, ok := w.(interface{ Fd() uintptr })
		if !ok {
			return false, nil
		}
		return isatty.IsTerminal(fd.Fd()) || isatty.IsCygwinTerminal(fd.Fd()), nil
	}
	return false, fmt.Errorf("invalid color mode %q (want %s, %s or %s)", mode, ColorAuto, ColorAlways, ColorNever)
}
