package nanos

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RedactMode selects how redacted entries are serialized.
type RedactMode uint8

const (
	// RedactNone writes redacted entries like any other.
	RedactNone RedactMode = iota
	// RedactOmit leaves redacted entries out entirely.
	RedactOmit
	// RedactComment writes an inert comment in place of each redacted entry.
	RedactComment
)

// String returns the mode name.
func (m RedactMode) String() string {
	switch m {
	case RedactNone:
		return "none"
	case RedactOmit:
		return "omit"
	case RedactComment:
		return "comment"
	default:
		return "unknown"
	}
}

// ParseRedactMode parses "none", "omit" (or "true") and "comment".
func ParseRedactMode(s string) (RedactMode, error) {
	switch strings.ToLower(s) {
	case "", "none", "false":
		return RedactNone, nil
	case "omit", "true":
		return RedactOmit, nil
	case "comment":
		return RedactComment, nil
	}
	return RedactNone, fmt.Errorf("unknown redact mode %q", s)
}

// Redaction markers.
const (
	redactedValue     = "/*?*/"
	redactedPair      = "/*?=?*/"
	redactedContainer = "/*???*/"
)

// EmitOptions configures the SLID emitter.
type EmitOptions struct {
	// Compact drops every space that is not needed to separate tokens.
	Compact bool

	// Redact selects the treatment of redacted entries.
	Redact RedactMode
}

// DefaultEmitOptions returns the options used by Emit and String.
func DefaultEmitOptions() EmitOptions {
	return EmitOptions{Redact: RedactOmit}
}

// Emit converts v to SLID text. Values other than containers are first
// normalized with FromValue.
func Emit(v any) string {
	return EmitWithOptions(v, DefaultEmitOptions())
}

// EmitCompact converts v to compact SLID text.
func EmitCompact(v any) string {
	return EmitWithOptions(v, EmitOptions{Compact: true, Redact: RedactOmit})
}

// EmitWithOptions converts v with custom options.
func EmitWithOptions(v any, opts EmitOptions) string {
	e := &emitter{opts: opts}
	c := FromValue(v)
	c.rio.Depend()
	return "[(" + e.join(e.items(c)) + ")]"
}

type emitter struct {
	opts EmitOptions
}

// items renders the entries of c. Index keys that follow the previous index
// are written bare; any other index gets an explicit N= prefix. Trailing
// holes become one @e each.
func (e *emitter) items(c *Container) []string {
	if c.redactAll && e.opts.Redact != RedactNone {
		if e.opts.Redact == RedactComment {
			return []string{redactedContainer}
		}
		return nil
	}

	var out []string
	expected := 0
	for _, k := range c.seq.keys {
		idx, isIndex := indexValue(k)
		if e.opts.Redact != RedactNone && c.isRedacted(k) {
			if e.opts.Redact == RedactComment {
				if isIndex && idx == expected {
					out = append(out, redactedValue)
				} else {
					out = append(out, redactedPair)
				}
			}
			continue
		}

		value := e.value(c.final(c.storage[k]))
		switch {
		case !isIndex:
			out = append(out, e.key(k)+"="+value)
		case idx == expected:
			out = append(out, value)
		default:
			out = append(out, k+"="+value)
		}
		if isIndex {
			expected = idx + 1
		}
	}
	for ; expected < c.seq.next; expected++ {
		out = append(out, "@e")
	}
	return out
}

// join separates items with single spaces, or in compact mode only where
// two items would otherwise run together.
func (e *emitter) join(items []string) string {
	if !e.opts.Compact {
		return strings.Join(items, " ")
	}
	var sb strings.Builder
	for i, item := range items {
		if i > 0 && needsSpace(items[i-1], item) {
			sb.WriteByte(' ')
		}
		sb.WriteString(item)
	}
	return sb.String()
}

// needsSpace decides whether two adjacent items need a separator. A quote
// or bracket at the joint already separates them, except quote against
// quote.
func needsSpace(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}
	a, b := prev[len(prev)-1], next[0]
	aQuote, bQuote := a == '\'' || a == '"', b == '\'' || b == '"'
	if aQuote && bQuote {
		return true
	}
	return !(aQuote || bQuote || a == '[' || a == ']' || b == '[' || b == ']')
}

func (e *emitter) key(k string) string {
	if isWordLiteral(k) {
		return k
	}
	return quoteString(k)
}

func (e *emitter) value(v any) string {
	switch x := v.(type) {
	case nil:
		return "@n"
	case bool:
		if x {
			return "@t"
		}
		return "@f"
	case Undef:
		return "@u"
	case EmptySlot:
		return "@e"
	case *big.Int:
		if x == nil {
			return "@n"
		}
		return x.String() + "n"
	case int:
		return strconv.Itoa(x)
	case int8:
		return strconv.FormatInt(int64(x), 10)
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return formatUint(uint64(x))
	case uint8:
		return strconv.FormatUint(uint64(x), 10)
	case uint16:
		return strconv.FormatUint(uint64(x), 10)
	case uint32:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return formatUint(x)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case string:
		return e.key(x)
	case *Container:
		if x == nil {
			return "@n"
		}
		x.rio.Depend()
		return "[" + e.join(e.items(x)) + "]"
	case fmt.Stringer:
		return e.key(x.String())
	}
	if isContainerLike(v, Options{}) {
		return e.value(FromValue(v))
	}
	return e.key(fmt.Sprint(v))
}

// formatFloat writes the shortest round-trip form, keeping a decimal point
// on integral values so the text reads back as a float.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	s := strconv.FormatFloat(f, format, -1, bits)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// isWordLiteral reports whether s can be written without quotes.
func isWordLiteral(s string) bool {
	if s == "" {
		return false
	}
	r, size := utf8.DecodeRuneInString(s)
	if !unicode.IsLetter(r) && !strings.ContainsRune("_$!%&?^|~", r) {
		return false
	}
	for i := size; i < len(s); {
		r, size = utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError || (!unicode.IsLetter(r) && !unicode.IsDigit(r) && !strings.ContainsRune("_$!%&?^|~-+.:@#", r)) {
			return false
		}
		i += size
	}
	_, numeric := numberType(s)
	return !numeric
}

// formatUint writes values beyond the int64 range as bigints so they
// parse back exactly.
func formatUint(n uint64) string {
	if n > math.MaxInt64 {
		return strconv.FormatUint(n, 10) + "n"
	}
	return strconv.FormatUint(n, 10)
}

// quoteString single-quotes s with backslash escapes.
func quoteString(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			fmt.Fprintf(&sb, `\x%02x`, s[i])
			i++
			continue
		}
		i += size
		switch r {
		case '\'':
			sb.WriteString(`\'`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\v':
			sb.WriteString(`\v`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&sb, `\u%04x`, r)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&sb, `\x%02x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('\'')
	return escapeBoundary(sb.String())
}

// ============================================================
// Canonical Hash
// ============================================================

// CanonicalHash returns the hex SHA-256 of the compact, unredacted SLID
// text of v.
func CanonicalHash(v any) string {
	canonical := EmitWithOptions(v, EmitOptions{Compact: true, Redact: RedactNone})
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
