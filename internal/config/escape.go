package config

import (
	"errors"
	"strconv"
	"unicode/utf8"

	"github.com/kwall/kwall/internal/codepoint"
)

var errBadEscape = errors.New("malformed \\x escape")

// decodeValue turns a raw configuration value into a code-point sequence,
// expanding \xHHHH (4 hex digits, BMP code point) and \xHHHHHHHH (8 hex
// digits, any code point) escapes in place. A value consisting of exactly
// the escape \x00 decodes to an empty Sequence: the config escape for
// "empty string" on the "to" side of a substitution (spec §3/§6).
func decodeValue(raw string) (codepoint.Sequence, error) {
	if raw == `\x00` {
		return codepoint.Sequence{}, nil
	}

	var out codepoint.Sequence
	i := 0
	for i < len(raw) {
		if raw[i] == '\\' && i+1 < len(raw) && raw[i+1] == 'x' {
			hexLen, err := escapeHexLen(raw, i+2)
			if err != nil {
				return nil, &Error{Kind: BadHex, Key: raw, Err: err}
			}
			digits := raw[i+2 : i+2+hexLen]
			v, err := strconv.ParseUint(digits, 16, 32)
			if err != nil {
				return nil, &Error{Kind: BadHex, Key: raw, Err: err}
			}
			out = append(out, rune(v))
			i += 2 + hexLen
			continue
		}
		r, size := utf8.DecodeRuneInString(raw[i:])
		out = append(out, r)
		i += size
	}
	return out, nil
}

// escapeHexLen determines whether the escape starting at offset start is
// the 4-digit or 8-digit form, per spec §6, preferring the longer form
// when both are plausible.
func escapeHexLen(raw string, start int) (int, error) {
	for _, n := range []int{8, 4} {
		if start+n <= len(raw) && isAllHex(raw[start:start+n]) {
			return n, nil
		}
	}
	return 0, errBadEscape
}

func isAllHex(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
