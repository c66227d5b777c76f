package parser

import (
	"strings"
	"sync"
)

// DelimiterKind identifies which AI provider a prompt span is addressed to.
type DelimiterKind string

const (
	DelimiterBackslash DelimiterKind = "openai"
	DelimiterSlash     DelimiterKind = "anthropic"
	DelimiterBracket   DelimiterKind = "perplexity"
)

type delimiter struct {
	kind   DelimiterKind
	open   string
	close  string
	ignore func(text string, at int) bool
}

var delimiters = []delimiter{
	{kind: DelimiterBackslash, open: `\\`, close: `\\`},
	{kind: DelimiterSlash, open: "//", close: "//", ignore: urlScheme},
	{kind: DelimiterBracket, open: "[[", close: "]]"},
}

// urlScheme reports whether the "//" at text[at:] follows a scheme, as in
// https://host. Those slashes never open or close a prompt.
func urlScheme(text string, at int) bool {
	return at > 0 && text[at-1] == ':'
}

func (d delimiter) skip(text string, at int) bool {
	return d.ignore != nil && d.ignore(text, at)
}

// pairs calls fn with the bounds of every delimited run in text, scanning
// left to right without overlap. A run never spans a line break.
func (d delimiter) pairs(text string, fn func(start, bodyStart, bodyEnd, end int)) {
	pos := 0
	for pos < len(text) {
		i := strings.Index(text[pos:], d.open)
		if i < 0 {
			return
		}
		start := pos + i
		if d.skip(text, start) {
			pos = start + 1
			continue
		}
		bodyStart := start + len(d.open)
		bodyEnd := d.closer(text, bodyStart)
		if bodyEnd < 0 {
			pos = start + 1
			continue
		}
		end := bodyEnd + len(d.close)
		fn(start, bodyStart, bodyEnd, end)
		pos = end
	}
}

func (d delimiter) closer(text string, from int) int {
	line := text[from:]
	if nl := strings.IndexByte(line, '\n'); nl >= 0 {
		line = line[:nl]
	}
	for p := 0; p < len(line); {
		j := strings.Index(line[p:], d.close)
		if j < 0 {
			return -1
		}
		at := from + p + j
		if !d.skip(text, at) {
			return at
		}
		p += j + 1
	}
	return -1
}

// PromptSpan is an actionable prompt found in note text.
type PromptSpan struct {
	Kind      DelimiterKind `json:"kind"`
	Prompt    string        `json:"prompt"`
	Preceding string        `json:"preceding"`
	// Raw is the full delimited text, delimiters included.
	Raw string `json:"raw"`
	Key string `json:"key"`
}

// ExtractPromptSpans returns at most one span: the last delimited prompt in
// text with a non-blank body. Unterminated delimiters yield nothing.
func ExtractPromptSpans(text string) []PromptSpan {
	best := -1
	var span PromptSpan
	for _, d := range delimiters {
		d.pairs(text, func(start, bodyStart, bodyEnd, end int) {
			prompt := strings.TrimSpace(text[bodyStart:bodyEnd])
			if prompt == "" || start <= best {
				return
			}
			best = start
			span = PromptSpan{
				Kind:      d.kind,
				Prompt:    prompt,
				Preceding: text[:start],
				Raw:       text[start:end],
				Key:       string(d.kind) + "\x00" + prompt,
			}
		})
	}
	if best < 0 {
		return nil
	}
	return []PromptSpan{span}
}

// PromptTracker suppresses re-firing a prompt on every keystroke. One request
// may be in flight at a time. A prompt whose request succeeded is forgotten so
// the same text typed again fires again; a failed prompt stays suppressed until
// its text changes.
type PromptTracker struct {
	mu       sync.Mutex
	last     string
	inFlight bool
}

// Begin reports whether span should be sent. A true result must be paired
// with a call to Done.
func (t *PromptTracker) Begin(span PromptSpan) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight || span.Key == t.last {
		return false
	}
	t.last = span.Key
	t.inFlight = true
	return true
}

// Done marks the in-flight request finished with the given outcome.
func (t *PromptTracker) Done(err error) {
	t.mu.Lock()
	t.inFlight = false
	if err == nil {
		t.last = ""
	}
	t.mu.Unlock()
}
