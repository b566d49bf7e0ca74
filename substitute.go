package distroinfo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/distroinfo/value"
)

// Substitute interpolates the `%(name)<conversion>` placeholders of text
// with the values of vars. Supported conversions are s, r, a, d, i, u, f,
// F, e, E, g, G, x, X, o and c, with optional flags (#0- +), width and
// precision. `%%` is a literal percent sign. Substitution is single pass:
// substituted values are not themselves interpolated.
func Substitute(text string, vars *value.Map) (string, error) {
	var b strings.Builder
	for i := 0; i < len(text); {
		c := text[i]
		if c != '%' {
			b.WriteByte(c)
			i++
			continue
		}
		spec, n, err := parseSpec(text[i:])
		if err != nil {
			return "", &SubstitutionFailedError{Text: text, Reason: err.Error()}
		}
		i += n
		if spec.conv == '%' {
			b.WriteByte('%')
			continue
		}
		v, ok := vars.Get(spec.name)
		if !ok {
			return "", &SubstitutionFailedError{
				Text:   text,
				Reason: fmt.Sprintf("%q is not defined", spec.name),
			}
		}
		out, err := spec.format(v)
		if err != nil {
			return "", &SubstitutionFailedError{Text: text, Reason: err.Error()}
		}
		b.WriteString(out)
	}
	return b.String(), nil
}

// substituteAll interpolates every string attribute of m against m itself.
// Only the unsubstituted attribute values are used as input.
func substituteAll(m *value.Map) (*value.Map, error) {
	out := m.Copy()
	var err error
	m.Range(func(k string, v value.Value) bool {
		s, ok := v.(value.String)
		if !ok {
			return true
		}
		var res string
		if res, err = Substitute(string(s), m); err != nil {
			return false
		}
		out.Set(k, value.String(res))
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type formatSpec struct {
	name      string
	flags     string
	width     int
	precision int // -1 when absent
	conv      byte
}

// parseSpec reads one conversion specification at the start of s, which
// begins with '%'. It returns the number of bytes consumed.
func parseSpec(s string) (formatSpec, int, error) {
	spec := formatSpec{precision: -1}
	i := 1
	if i >= len(s) {
		return spec, 0, fmt.Errorf("incomplete format")
	}
	if s[i] == '%' {
		spec.conv = '%'
		return spec, 2, nil
	}
	if s[i] != '(' {
		return spec, 0, fmt.Errorf("format requires a mapping key")
	}

	depth := 1
	start := i + 1
	for i++; i < len(s) && depth > 0; i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
	}
	if depth > 0 {
		return spec, 0, fmt.Errorf("incomplete format key")
	}
	spec.name = s[start : i-1]

	for ; i < len(s) && strings.IndexByte("#0- +", s[i]) >= 0; i++ {
		if strings.IndexByte(spec.flags, s[i]) < 0 {
			spec.flags += string(s[i])
		}
	}
	if i < len(s) && s[i] == '*' {
		return spec, 0, fmt.Errorf("* wants int")
	}
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		spec.width = spec.width*10 + int(s[i]-'0')
	}
	if i < len(s) && s[i] == '.' {
		i++
		if i < len(s) && s[i] == '*' {
			return spec, 0, fmt.Errorf("* wants int")
		}
		spec.precision = 0
		for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			spec.precision = spec.precision*10 + int(s[i]-'0')
		}
	}
	for i < len(s) && strings.IndexByte("hlL", s[i]) >= 0 {
		i++
	}
	if i >= len(s) {
		return spec, 0, fmt.Errorf("incomplete format")
	}
	spec.conv = s[i]
	if strings.IndexByte("sradiufFeEgGxXoc", spec.conv) < 0 {
		return spec, 0, fmt.Errorf("unsupported format character %q", spec.conv)
	}
	return spec, i + 1, nil
}

func (f formatSpec) has(flag byte) bool {
	return strings.IndexByte(f.flags, flag) >= 0
}

// verb builds the fmt verb for the spec, dropping flags in drop.
func (f formatSpec) verb(conv byte, drop string, precision int) string {
	var b strings.Builder
	b.WriteByte('%')
	for i := 0; i < len(f.flags); i++ {
		if strings.IndexByte(drop, f.flags[i]) < 0 {
			b.WriteByte(f.flags[i])
		}
	}
	if f.width > 0 {
		b.WriteString(strconv.Itoa(f.width))
	}
	if precision >= 0 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(precision))
	}
	b.WriteByte(conv)
	return b.String()
}

func (f formatSpec) format(v value.Value) (string, error) {
	switch f.conv {
	case 's':
		return fmt.Sprintf(f.verb('s', "#0+ ", f.precision), pyStr(v)), nil
	case 'r', 'a':
		return fmt.Sprintf(f.verb('s', "#0+ ", f.precision), pyRepr(v)), nil
	case 'c':
		var r rune
		switch t := v.(type) {
		case value.Int:
			r = rune(t)
		case value.Bool:
			if t {
				r = 1
			}
		case value.String:
			if utf8.RuneCountInString(string(t)) != 1 {
				return "", fmt.Errorf("%%c requires int or char")
			}
			r, _ = utf8.DecodeRuneInString(string(t))
		default:
			return "", fmt.Errorf("%%c requires int or char")
		}
		return fmt.Sprintf(f.verb('s', "#0+ ", -1), string(r)), nil
	case 'd', 'i', 'u':
		n, err := toInt(v, true)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(f.verb('d', "#", f.precision), n), nil
	case 'x', 'X':
		n, err := toInt(v, false)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(f.verb(f.conv, "", f.precision), n), nil
	case 'o':
		n, err := toInt(v, false)
		if err != nil {
			return "", err
		}
		if !f.has('#') {
			return fmt.Sprintf(f.verb('o', "", f.precision), n), nil
		}
		return f.formatAltOctal(n), nil
	case 'f', 'F', 'e', 'E', 'g', 'G':
		x, err := toFloat(v)
		if err != nil {
			return "", err
		}
		prec := f.precision
		if prec < 0 {
			prec = 6
		}
		conv := f.conv
		if conv == 'F' {
			conv = 'f'
		}
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return fmt.Sprintf(f.verb('s', "#0", -1), pyFloatSpecial(x, f)), nil
		}
		return fmt.Sprintf(f.verb(conv, "", prec), x), nil
	}
	return "", fmt.Errorf("unsupported format character %q", f.conv)
}

// formatAltOctal renders an octal number with the 0o prefix.
func (f formatSpec) formatAltOctal(n int64) string {
	sign := ""
	switch {
	case n < 0:
		sign = "-"
		n = -n
	case f.has('+'):
		sign = "+"
	case f.has(' '):
		sign = " "
	}
	digits := strconv.FormatInt(n, 8)
	if f.precision > len(digits) {
		digits = strings.Repeat("0", f.precision-len(digits)) + digits
	}
	body := sign + "0o"
	pad := f.width - len(body) - len(digits)
	switch {
	case pad <= 0:
		return body + digits
	case f.has('-'):
		return body + digits + strings.Repeat(" ", pad)
	case f.has('0'):
		return body + strings.Repeat("0", pad) + digits
	}
	return strings.Repeat(" ", pad) + body + digits
}

func pyFloatSpecial(x float64, f formatSpec) string {
	s := "inf"
	if math.IsNaN(x) {
		s = "nan"
	}
	switch {
	case math.IsInf(x, -1):
		s = "-" + s
	case f.has('+'):
		s = "+" + s
	case f.has(' '):
		s = " " + s
	}
	if f.conv == 'F' || f.conv == 'E' || f.conv == 'G' {
		s = strings.ToUpper(s)
	}
	return s
}

func toInt(v value.Value, allowFloat bool) (int64, error) {
	switch t := v.(type) {
	case value.Int:
		return int64(t), nil
	case value.Bool:
		if t {
			return 1, nil
		}
		return 0, nil
	case value.Float:
		if allowFloat && !math.IsInf(float64(t), 0) && !math.IsNaN(float64(t)) {
			return int64(t), nil
		}
	}
	return 0, fmt.Errorf("a number is required, not %s", value.KindOf(v))
}

func toFloat(v value.Value) (float64, error) {
	switch t := v.(type) {
	case value.Float:
		return float64(t), nil
	case value.Int:
		return float64(t), nil
	case value.Bool:
		if t {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("a number is required, not %s", value.KindOf(v))
}

// pyStr renders v the way info authors expect from the data files' host
// language: None, True, ['a', 'b'] and so on.
func pyStr(v value.Value) string {
	if s, ok := v.(value.String); ok {
		return string(s)
	}
	return pyRepr(v)
}

func pyRepr(v value.Value) string {
	switch t := v.(type) {
	case nil:
		return "None"
	case value.Bool:
		if t {
			return "True"
		}
		return "False"
	case value.Int:
		return strconv.FormatInt(int64(t), 10)
	case value.Float:
		return pyFloat(float64(t))
	case value.String:
		return pyQuote(string(t))
	case value.List:
		parts := make([]string, 0, len(t))
		for _, e := range t {
			parts = append(parts, pyRepr(e))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *value.Map:
		if t == nil {
			return "None"
		}
		parts := make([]string, 0, t.Len())
		t.Range(func(k string, e value.Value) bool {
			parts = append(parts, pyQuote(k)+": "+pyRepr(e))
			return true
		})
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return fmt.Sprint(v)
}

// pyFloat is the shortest round-tripping representation, in positional
// notation for exponents from -4 to 15.
func pyFloat(x float64) string {
	switch {
	case math.IsNaN(x):
		return "nan"
	case math.IsInf(x, 1):
		return "inf"
	case math.IsInf(x, -1):
		return "-inf"
	}
	sci := strconv.FormatFloat(x, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(x, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

func pyQuote(s string) string {
	quote := byte('\'')
	if strings.IndexByte(s, '\'') >= 0 && strings.IndexByte(s, '"') < 0 {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == rune(quote):
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}
