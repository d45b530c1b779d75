package ai

import (
	"encoding/json"
	"regexp"
	"slices"
	"strings"

	"resumeseo/internal/errors"
	"resumeseo/internal/schema"
	"resumeseo/internal/types"
)

var fencePattern = regexp.MustCompile("(?s)```[A-Za-z]*[ \t]*\r?\n?(.*?)```")

// Interpret turns a raw model reply into a validated analysis. It is a pure
// function of its inputs.
func Interpret(raw string, fs types.FieldSet) (*types.ResumeAnalysis, error) {
	payload, ok := ExtractJSON(raw)
	if !ok {
		return nil, errors.NewInterpretationError(errors.ErrCodeNoPayload,
			"model reply did not contain a JSON payload", nil).
			WithContext("reply_length", len(raw))
	}
	return schema.Validate(payload, fs)
}

// ExtractJSON finds the structured payload inside a model reply. A fenced
// code block holding valid JSON wins. Otherwise the balanced spans in the
// text are tried in order, objects before arrays, since prose around the
// payload often carries bracketed citations such as [1].
func ExtractJSON(text string) ([]byte, bool) {
	for _, m := range fencePattern.FindAllStringSubmatch(text, -1) {
		candidate := strings.TrimSpace(m[1])
		if candidate != "" && json.Valid([]byte(candidate)) {
			return []byte(candidate), true
		}
	}

	var firstArray []byte
	for _, sp := range balancedSpans(text) {
		candidate := []byte(text[sp.start : sp.end+1])
		if !json.Valid(candidate) {
			continue
		}
		if text[sp.start] == '{' {
			return candidate, true
		}
		if firstArray == nil {
			firstArray = candidate
		}
	}
	return firstArray, firstArray != nil
}

type span struct{ start, end int }

type bracketFrame struct {
	open     byte
	start    int
	children []span
}

// balancedSpans matches brackets in one pass and returns, ordered by start,
// the outermost balanced spans. Spans nested in a bracket that never closes
// are returned in its place. Brackets inside string literals are ignored;
// strings are only tracked inside a bracket, so quotes in prose do not
// matter. A mismatched closing bracket abandons everything open.
func balancedSpans(text string) []span {
	var (
		stack    []bracketFrame
		out      []span
		inString bool
		escaped  bool
	)
	abandon := func() {
		for _, f := range stack {
			out = append(out, f.children...)
		}
		stack = stack[:0]
	}

	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = len(stack) > 0
		case '{', '[':
			stack = append(stack, bracketFrame{open: c, start: i})
		case '}', ']':
			if len(stack) == 0 {
				continue
			}
			top := stack[len(stack)-1]
			if closerFor(top.open) != c {
				abandon()
				continue
			}
			stack = stack[:len(stack)-1]
			sp := span{top.start, i}
			if len(stack) == 0 {
				out = append(out, sp)
			} else {
				parent := &stack[len(stack)-1]
				parent.children = append(parent.children, sp)
			}
		}
	}
	abandon()

	slices.SortFunc(out, func(a, b span) int { return a.start - b.start })
	return out
}

func closerFor(open byte) byte {
	if open == '{' {
		return '}'
	}
	return ']'
}
