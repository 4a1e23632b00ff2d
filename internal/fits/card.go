package fits

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CardSize is the fixed length of one header record.
const CardSize = 80

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	KindBool ValueKind = iota + 1
	KindNumber
	KindText
)

func (k ValueKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a header value. Exactly one payload field is meaningful, selected
// by Kind.
type Value struct {
	Kind ValueKind
	b    bool
	num  float64
	str  string
}

func BoolValue(b bool) Value { return Value{Kind: KindBool, b: b} }

func NumberValue(f float64) Value { return Value{Kind: KindNumber, num: f} }

func TextValue(s string) Value { return Value{Kind: KindText, str: s} }

func (v Value) Bool() (bool, bool) {
	return v.b, v.Kind == KindBool
}

func (v Value) Number() (float64, bool) {
	return v.num, v.Kind == KindNumber
}

func (v Value) Text() (string, bool) {
	return v.str, v.Kind == KindText
}

// Any returns the payload as bool, float64 or string.
func (v Value) Any() any {
	switch v.Kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.num
	case KindText:
		return v.str
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindBool:
		if v.b {
			return "T"
		}
		return "F"
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindText:
		return v.str
	default:
		return ""
	}
}

// Card is one parsed keyword record.
type Card struct {
	Key     string
	Value   Value
	Comment string
}

// CardKind classifies the outcome of parsing a raw record.
type CardKind uint8

const (
	// CardSkipped is a record with no usable value.
	CardSkipped CardKind = iota
	CardValue
	CardCommentary
	CardEnd
)

var (
	valueCardRe = regexp.MustCompile(`^([A-Z0-9_-]{1,8}) *= ?(.*)$`)
	endCardRe   = regexp.MustCompile(`^END *$`)
)

var commentaryKeys = map[string]bool{
	"COMMENT": true,
	"HISTORY": true,
	"":        true,
}

// ParseCard decodes one 80-byte record. Only CardValue results carry a Card;
// CardCommentary results carry the whole record text in Card.Comment.
func ParseCard(raw []byte) (Card, CardKind) {
	if len(raw) != CardSize {
		return Card{}, CardSkipped
	}
	line := decodeText(raw)
	if line == "" {
		return Card{}, CardSkipped
	}
	if endCardRe.MatchString(line) {
		return Card{}, CardEnd
	}

	key := strings.TrimSpace(string(raw[:8]))
	if commentaryKeys[key] && (len(raw) < 10 || string(raw[8:10]) != "= ") {
		return Card{Key: key, Comment: line}, CardCommentary
	}

	m := valueCardRe.FindStringSubmatch(line)
	if m == nil {
		return Card{}, CardSkipped
	}
	val, comment, ok := parseValueField(m[2])
	if !ok {
		return Card{}, CardSkipped
	}
	return Card{Key: m[1], Value: val, Comment: comment}, CardValue
}

func parseValueField(field string) (Value, string, bool) {
	field = strings.TrimLeft(field, " ")
	if strings.HasPrefix(field, "'") {
		s, rest, ok := parseQuoted(field)
		if !ok {
			return Value{}, "", false
		}
		return TextValue(s), commentFrom(rest), true
	}

	raw, comment, _ := strings.Cut(field, "/")
	raw = strings.TrimSpace(raw)
	comment = strings.TrimSpace(comment)
	switch raw {
	case "":
		return Value{}, "", false
	case "T":
		return BoolValue(true), comment, true
	case "F":
		return BoolValue(false), comment, true
	}
	if f, ok := parseNumber(raw); ok {
		return NumberValue(f), comment, true
	}
	return TextValue(raw), comment, true
}

// parseQuoted reads a string starting at an opening single quote. Doubled
// quotes inside the string stand for one quote.
func parseQuoted(s string) (string, string, bool) {
	var b strings.Builder
	for i := 1; i < len(s); i++ {
		if s[i] != '\'' {
			b.WriteByte(s[i])
			continue
		}
		if i+1 < len(s) && s[i+1] == '\'' {
			b.WriteByte('\'')
			i++
			continue
		}
		return strings.TrimSpace(b.String()), s[i+1:], true
	}
	return "", "", false
}

func commentFrom(rest string) string {
	_, comment, found := strings.Cut(rest, "/")
	if !found {
		return ""
	}
	return strings.TrimSpace(comment)
}

// parseNumber accepts Go float syntax plus the Fortran D exponent.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if !strings.ContainsRune("0123456789+-.eEdD", rune(s[i])) {
			return 0, false
		}
	}
	if strings.ContainsAny(s, "dD") {
		s = strings.NewReplacer("D", "E", "d", "e").Replace(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
