package value

import (
	"fmt"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// Decode parses a JSON document into a Value. Object keys keep their
// insertion order and, on a duplicate key, the first occurrence wins (the
// decoder never reports a collision as an error, per the data model: the
// "keys must be unique" report is only produced by callers that require it,
// e.g. json.is_valid does not surface it).
func Decode(data []byte) (Value, error) {
	d := &decoder{data: data}
	d.skipSpace()
	v, err := d.parseValue()
	if err != nil {
		return Value{}, err
	}
	d.skipSpace()
	if d.pos != len(d.data) {
		return Value{}, fmt.Errorf("value: trailing data at offset %d", d.pos)
	}
	return v, nil
}

type decoder struct {
	data []byte
	pos  int
}

func (d *decoder) skipSpace() {
	for d.pos < len(d.data) {
		switch d.data[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *decoder) peek() (byte, bool) {
	if d.pos >= len(d.data) {
		return 0, false
	}
	return d.data[d.pos], true
}

func (d *decoder) parseValue() (Value, error) {
	d.skipSpace()
	c, ok := d.peek()
	if !ok {
		return Value{}, fmt.Errorf("value: unexpected end of input")
	}
	switch {
	case c == '{':
		return d.parseObject()
	case c == '[':
		return d.parseArray()
	case c == '"':
		s, err := d.parseString()
		if err != nil {
			return Value{}, err
		}
		return String(s), nil
	case c == 't':
		return d.parseLiteral("true", Bool(true))
	case c == 'f':
		return d.parseLiteral("false", Bool(false))
	case c == 'n':
		return d.parseLiteral("null", Null())
	case c == '-' || (c >= '0' && c <= '9'):
		return d.parseNumber()
	default:
		return Value{}, fmt.Errorf("value: unexpected character %q at offset %d", c, d.pos)
	}
}

func (d *decoder) parseLiteral(lit string, v Value) (Value, error) {
	if d.pos+len(lit) > len(d.data) || string(d.data[d.pos:d.pos+len(lit)]) != lit {
		return Value{}, fmt.Errorf("value: invalid literal at offset %d", d.pos)
	}
	d.pos += len(lit)
	return v, nil
}

func (d *decoder) parseNumber() (Value, error) {
	start := d.pos
	if b, ok := d.peek(); ok && b == '-' {
		d.pos++
	}
	for d.pos < len(d.data) && isDigit(d.data[d.pos]) {
		d.pos++
	}
	if d.pos < len(d.data) && d.data[d.pos] == '.' {
		d.pos++
		for d.pos < len(d.data) && isDigit(d.data[d.pos]) {
			d.pos++
		}
	}
	if d.pos < len(d.data) && (d.data[d.pos] == 'e' || d.data[d.pos] == 'E') {
		d.pos++
		if d.pos < len(d.data) && (d.data[d.pos] == '+' || d.data[d.pos] == '-') {
			d.pos++
		}
		for d.pos < len(d.data) && isDigit(d.data[d.pos]) {
			d.pos++
		}
	}
	text := string(d.data[start:d.pos])
	if text == "" || text == "-" {
		return Value{}, fmt.Errorf("value: invalid number at offset %d", start)
	}
	return Number(text)
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (d *decoder) parseString() (string, error) {
	if b, _ := d.peek(); b != '"' {
		return "", fmt.Errorf("value: expected string at offset %d", d.pos)
	}
	d.pos++
	var out []byte
	for {
		if d.pos >= len(d.data) {
			return "", fmt.Errorf("value: unterminated string")
		}
		c := d.data[d.pos]
		if c == '"' {
			d.pos++
			return string(out), nil
		}
		if c == '\\' {
			d.pos++
			if d.pos >= len(d.data) {
				return "", fmt.Errorf("value: unterminated escape")
			}
			esc := d.data[d.pos]
			switch esc {
			case '"', '\\', '/':
				out = append(out, esc)
				d.pos++
			case 'n':
				out = append(out, '\n')
				d.pos++
			case 't':
				out = append(out, '\t')
				d.pos++
			case 'r':
				out = append(out, '\r')
				d.pos++
			case 'b':
				out = append(out, '\b')
				d.pos++
			case 'f':
				out = append(out, '\f')
				d.pos++
			case 'u':
				r, err := d.parseUnicodeEscape()
				if err != nil {
					return "", err
				}
				var buf [4]byte
				n := utf8.EncodeRune(buf[:], r)
				out = append(out, buf[:n]...)
			default:
				return "", fmt.Errorf("value: invalid escape \\%c", esc)
			}
			continue
		}
		out = append(out, c)
		d.pos++
	}
}

func (d *decoder) parseUnicodeEscape() (rune, error) {
	d.pos++ // consume 'u'
	r1, err := d.hex4()
	if err != nil {
		return 0, err
	}
	if utf16.IsSurrogate(rune(r1)) {
		if d.pos+1 < len(d.data) && d.data[d.pos] == '\\' && d.data[d.pos+1] == 'u' {
			d.pos += 2
			r2, err := d.hex4()
			if err != nil {
				return 0, err
			}
			combined := utf16.DecodeRune(rune(r1), rune(r2))
			if combined != utf8.RuneError {
				return combined, nil
			}
		}
		return utf8.RuneError, nil
	}
	return rune(r1), nil
}

func (d *decoder) hex4() (int64, error) {
	if d.pos+4 > len(d.data) {
		return 0, fmt.Errorf("value: truncated unicode escape")
	}
	v, err := strconv.ParseInt(string(d.data[d.pos:d.pos+4]), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("value: invalid unicode escape: %w", err)
	}
	d.pos += 4
	return v, nil
}

func (d *decoder) parseArray() (Value, error) {
	d.pos++ // consume '['
	var items []Value
	d.skipSpace()
	if b, ok := d.peek(); ok && b == ']' {
		d.pos++
		return Array(items...), nil
	}
	for {
		v, err := d.parseValue()
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
		d.skipSpace()
		b, ok := d.peek()
		if !ok {
			return Value{}, fmt.Errorf("value: unterminated array")
		}
		if b == ',' {
			d.pos++
			continue
		}
		if b == ']' {
			d.pos++
			return Array(items...), nil
		}
		return Value{}, fmt.Errorf("value: expected ',' or ']' at offset %d", d.pos)
	}
}

func (d *decoder) parseObject() (Value, error) {
	d.pos++ // consume '{'
	obj := NewObject()
	d.skipSpace()
	if b, ok := d.peek(); ok && b == '}' {
		d.pos++
		return obj, nil
	}
	for {
		d.skipSpace()
		key, err := d.parseString()
		if err != nil {
			return Value{}, err
		}
		d.skipSpace()
		if b, ok := d.peek(); !ok || b != ':' {
			return Value{}, fmt.Errorf("value: expected ':' at offset %d", d.pos)
		}
		d.pos++
		v, err := d.parseValue()
		if err != nil {
			return Value{}, err
		}
		if _, exists := obj.Get(key); !exists {
			obj.Set(key, v)
		}
		d.skipSpace()
		b, ok := d.peek()
		if !ok {
			return Value{}, fmt.Errorf("value: unterminated object")
		}
		if b == ',' {
			d.pos++
			continue
		}
		if b == '}' {
			d.pos++
			return obj, nil
		}
		return Value{}, fmt.Errorf("value: expected ',' or '}' at offset %d", d.pos)
	}
}
