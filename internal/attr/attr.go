// Package attr parses the compact attribute language used to describe resources.
//
// An attribute list is a sequence of key=value pairs separated by commas
// and/or whitespace:
//
//	id=int64, find=FindQuery list=ListQuery
//	scope=/v1 path="item"
//
// Keys are identifiers ([A-Za-z_][A-Za-z0-9_]*). Values run until the next
// separator unless they are double-quoted, in which case Go string escapes apply.
package attr

import (
	"fmt"
	"strconv"
	"strings"
)

// Attr is a single key=value pair.
type Attr struct {
	Key   string
	Value string
	// Offset is the byte offset of the key in the parsed text.
	Offset int
}

// List is an ordered attribute list with unique keys.
type List []Attr

// Get returns the value for key.
func (l List) Get(key string) (string, bool) {
	for _, a := range l {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Keys returns the keys in declaration order.
func (l List) Keys() []string {
	keys := make([]string, len(l))
	for i, a := range l {
		keys[i] = a.Key
	}
	return keys
}

// SyntaxError reports a malformed attribute list.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
}

// Parse parses text into a List. An empty or blank text yields an empty list.
func Parse(text string) (List, error) {
	p := &parser{src: text}
	var list List
	seen := make(map[string]int)
	for {
		p.skipSeparators()
		if p.eof() {
			return list, nil
		}
		a, err := p.attr()
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[a.Key]; dup {
			return nil, &SyntaxError{Offset: a.Offset, Msg: fmt.Sprintf("duplicate key %q (first at offset %d)", a.Key, prev)}
		}
		seen[a.Key] = a.Offset
		list = append(list, a)
	}
}

type parser struct {
	src string
	pos int
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte { return p.src[p.pos] }

func isSeparator(c byte) bool {
	return c == ',' || c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func (p *parser) skipSeparators() {
	for !p.eof() && isSeparator(p.peek()) {
		p.pos++
	}
}

func (p *parser) attr() (Attr, error) {
	start := p.pos
	if !isIdentStart(p.peek()) {
		return Attr{}, &SyntaxError{Offset: start, Msg: fmt.Sprintf("expected key, found %q", p.peek())}
	}
	for !p.eof() && isIdentPart(p.peek()) {
		p.pos++
	}
	key := p.src[start:p.pos]

	if p.eof() || p.peek() != '=' {
		return Attr{}, &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf("expected '=' after key %q", key)}
	}
	p.pos++

	value, err := p.value(key)
	if err != nil {
		return Attr{}, err
	}
	return Attr{Key: key, Value: value, Offset: start}, nil
}

func (p *parser) value(key string) (string, error) {
	if p.eof() || isSeparator(p.peek()) {
		return "", &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf("missing value for key %q", key)}
	}
	if p.peek() == '"' {
		return p.quoted()
	}
	start := p.pos
	for !p.eof() && !isSeparator(p.peek()) {
		if p.peek() == '"' || p.peek() == '=' {
			return "", &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf("unexpected %q in value of %q", p.peek(), key)}
		}
		p.pos++
	}
	return p.src[start:p.pos], nil
}

func (p *parser) quoted() (string, error) {
	start := p.pos
	p.pos++ // opening quote
	for !p.eof() {
		switch p.peek() {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			s, err := strconv.Unquote(p.src[start:p.pos])
			if err != nil {
				return "", &SyntaxError{Offset: start, Msg: fmt.Sprintf("bad quoted value: %v", err)}
			}
			if !p.eof() && !isSeparator(p.peek()) {
				return "", &SyntaxError{Offset: p.pos, Msg: "expected separator after quoted value"}
			}
			return s, nil
		}
		p.pos++
	}
	return "", &SyntaxError{Offset: start, Msg: "unterminated quoted value"}
}

// String formats the list back into its canonical text form.
func (l List) String() string {
	var b strings.Builder
	for i, a := range l {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(a.Key)
		b.WriteByte('=')
		if a.Value == "" || strings.ContainsAny(a.Value, " ,\t\r\n\"=") {
			b.WriteString(strconv.Quote(a.Value))
		} else {
			b.WriteString(a.Value)
		}
	}
	return b.String()
}
