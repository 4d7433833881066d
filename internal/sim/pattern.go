package sim

import (
	"fmt"
	"strings"
)

// Placeholder names recognised in query and response templates.
const (
	placeholderChannel = "ch_id"
)

type segmentKind int

const (
	segLiteral segmentKind = iota
	segChannel
	segValue
)

// segment is one piece of a parsed template: either literal text, the
// channel-id placeholder "{ch_id}", or a value placeholder "{}" /
// "{:<format>}".
type segment struct {
	kind   segmentKind
	text   string // literal text, or format spec for segValue
	format string // printf-style format spec for value placeholders
}

// Pattern is a parsed query or response template.
//
// Templates are parsed into an explicit segment list rather than matched
// by string formatting, so channel-id and value extraction stay
// unambiguous: a pattern may contain at most one value placeholder, and
// placeholders must be separated by literal text.
type Pattern struct {
	raw      string
	segments []segment
}

// ParsePattern parses a template into a Pattern.
//
// Recognised placeholders:
//   - "{ch_id}": channel identifier
//   - "{}": value, default formatting
//   - "{:<format>}": value with a format spec (e.g. "{:+.6E}", "{:d}")
func ParsePattern(tmpl string) (*Pattern, error) {
	p := &Pattern{raw: tmpl}
	rest := tmpl

	for len(rest) > 0 {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			p.segments = append(p.segments, segment{kind: segLiteral, text: rest})
			break
		}

		if open > 0 {
			p.segments = append(p.segments, segment{kind: segLiteral, text: rest[:open]})
			rest = rest[open:]
		}

		closing := strings.IndexByte(rest, '}')
		if closing < 0 {
			return nil, fmt.Errorf("%w: unterminated placeholder in %q", ErrPatternSyntax, tmpl)
		}

		inner := rest[1:closing]
		rest = rest[closing+1:]

		switch {
		case inner == placeholderChannel:
			p.segments = append(p.segments, segment{kind: segChannel})
		case inner == "":
			p.segments = append(p.segments, segment{kind: segValue})
		case strings.HasPrefix(inner, ":"):
			p.segments = append(p.segments, segment{kind: segValue, format: inner[1:]})
		default:
			return nil, fmt.Errorf("%w: unknown placeholder %q in %q", ErrPatternSyntax, inner, tmpl)
		}
	}

	if err := p.check(); err != nil {
		return nil, err
	}
	return p, nil
}

// check enforces the structural rules that keep matching unambiguous.
func (p *Pattern) check() error {
	values := 0
	for i, seg := range p.segments {
		if seg.kind == segLiteral {
			continue
		}
		if seg.kind == segValue {
			values++
		}
		if i > 0 && p.segments[i-1].kind != segLiteral {
			return fmt.Errorf("%w: adjacent placeholders in %q", ErrPatternSyntax, p.raw)
		}
	}
	if values > 1 {
		return fmt.Errorf("%w: multiple value placeholders in %q", ErrPatternSyntax, p.raw)
	}
	return nil
}

// HasChannel reports whether the pattern contains a "{ch_id}" placeholder.
func (p *Pattern) HasChannel() bool {
	for _, seg := range p.segments {
		if seg.kind == segChannel {
			return true
		}
	}
	return false
}

// HasValue reports whether the pattern contains a value placeholder.
func (p *Pattern) HasValue() bool {
	for _, seg := range p.segments {
		if seg.kind == segValue {
			return true
		}
	}
	return false
}

// ValueFormat returns the format spec of the value placeholder, if any.
func (p *Pattern) ValueFormat() string {
	for _, seg := range p.segments {
		if seg.kind == segValue {
			return seg.format
		}
	}
	return ""
}

// Raw returns the original template string.
func (p *Pattern) Raw() string {
	return p.raw
}

// BindChannel returns a copy of the pattern with "{ch_id}" replaced by the
// given channel id as literal text. Patterns without a channel placeholder
// are returned unchanged.
func (p *Pattern) BindChannel(chID string) *Pattern {
	if !p.HasChannel() {
		return p
	}

	bound := &Pattern{raw: strings.ReplaceAll(p.raw, "{"+placeholderChannel+"}", chID)}
	for _, seg := range p.segments {
		if seg.kind == segChannel {
			seg = segment{kind: segLiteral, text: chID}
		}
		bound.segments = append(bound.segments, seg)
	}
	bound.normalize()
	return bound
}

// normalize merges adjacent literal segments produced by BindChannel.
func (p *Pattern) normalize() {
	merged := p.segments[:0]
	for _, seg := range p.segments {
		if seg.kind == segLiteral && len(merged) > 0 && merged[len(merged)-1].kind == segLiteral {
			merged[len(merged)-1].text += seg.text
			continue
		}
		merged = append(merged, seg)
	}
	p.segments = merged
}

// Match attempts to match input against the pattern, extracting the raw
// value string captured by the value placeholder. Channel placeholders
// must be bound (see BindChannel) before matching.
//
// Returns the captured value ("" when the pattern has no value
// placeholder) and whether the input matched.
func (p *Pattern) Match(input string) (string, bool) {
	rest := input
	value := ""

	for i, seg := range p.segments {
		switch seg.kind {
		case segLiteral:
			if !strings.HasPrefix(rest, seg.text) {
				return "", false
			}
			rest = rest[len(seg.text):]

		case segValue:
			// Capture up to the next literal segment, or to the end of
			// input when the value placeholder is trailing.
			if i == len(p.segments)-1 {
				if rest == "" {
					return "", false
				}
				value = rest
				rest = ""
				continue
			}
			next := p.segments[i+1].text
			idx := strings.Index(rest, next)
			if idx <= 0 {
				return "", false
			}
			value = rest[:idx]
			rest = rest[idx:]

		case segChannel:
			// Unbound channel placeholders never match.
			return "", false
		}
	}

	if rest != "" {
		return "", false
	}
	return value, true
}

// Render substitutes the stored value into the pattern's value placeholder
// using its format spec. Channel placeholders must already be bound.
func (p *Pattern) Render(value any) (string, error) {
	var b strings.Builder
	for _, seg := range p.segments {
		switch seg.kind {
		case segLiteral:
			b.WriteString(seg.text)
		case segValue:
			s, err := formatValue(seg.format, value)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case segChannel:
			return "", fmt.Errorf("%w: unbound channel placeholder in %q", ErrPatternSyntax, p.raw)
		}
	}
	return b.String(), nil
}
