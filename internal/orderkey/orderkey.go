// Package orderkey generates string keys whose lexicographic order defines the
// display order of siblings.
//
// A key has an integer head followed by an optional fractional tail, both
// written in base 62 using the ASCII-ordered alphabet 0-9A-Za-z. The first
// character encodes the length of the integer part: 'a' means one digit
// follows, 'b' two digits, and so on; 'Z', 'Y', ... encode negative integers
// the same way in reverse. Appending to the end of a list therefore just
// increments the integer ("a0", "a1", ... "az", "b10"), while inserting
// between two neighbours bisects the fractional tail, growing the key by one
// character when the gap at the current length is used up.
package orderkey

import (
	"errors"
	"fmt"
	"strings"
)

const (
	digits = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	base   = len(digits)

	// First is the key handed out for an empty list.
	First = "a0"

	// smallestInteger is "A" followed by 26 zero digits. It has no
	// predecessor, so it is not a valid key on its own.
	smallestInteger = "A00000000000000000000000000"
)

var (
	// ErrInvalidKey is returned for strings that are not well-formed keys.
	ErrInvalidKey = errors.New("orderkey: invalid key")
	// ErrInvalidRange is returned when prev does not sort before next.
	ErrInvalidRange = errors.New("orderkey: prev must sort before next")
)

// Between returns a key that sorts strictly after prev and strictly before
// next. An empty prev means "before everything" and an empty next means
// "after everything". The result only depends on its inputs.
func Between(prev, next string) (string, error) {
	if prev != "" {
		if err := Validate(prev); err != nil {
			return "", err
		}
	}
	if next != "" {
		if err := Validate(next); err != nil {
			return "", err
		}
	}
	if prev != "" && next != "" && prev >= next {
		return "", fmt.Errorf("%w: %q >= %q", ErrInvalidRange, prev, next)
	}

	switch {
	case prev == "" && next == "":
		return First, nil

	case prev == "":
		ib := integerPart(next)
		fb := next[len(ib):]
		if ib == smallestInteger {
			return ib + midpoint("", fb), nil
		}
		if ib < next {
			return ib, nil
		}
		res, ok := decrement(ib)
		if !ok {
			return "", fmt.Errorf("%w: no key before %q", ErrInvalidRange, next)
		}
		return res, nil

	case next == "":
		ia := integerPart(prev)
		fa := prev[len(ia):]
		if i, ok := increment(ia); ok {
			return i, nil
		}
		return ia + midpoint(fa, ""), nil
	}

	ia := integerPart(prev)
	fa := prev[len(ia):]
	ib := integerPart(next)
	fb := next[len(ib):]
	if ia == ib {
		return ia + midpoint(fa, fb), nil
	}
	if i, ok := increment(ia); ok && i < next {
		return i, nil
	}
	return ia + midpoint(fa, ""), nil
}

// After returns a key that sorts after last, or First when last is empty.
func After(last string) (string, error) {
	return Between(last, "")
}

// Validate reports whether key is a well-formed order key.
func Validate(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if key == smallestInteger {
		return fmt.Errorf("%w: %q has no predecessor", ErrInvalidKey, key)
	}
	n, ok := integerLength(key[0])
	if !ok || n > len(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for i := 1; i < len(key); i++ {
		if strings.IndexByte(digits, key[i]) < 0 {
			return fmt.Errorf("%w: %q contains %q", ErrInvalidKey, key, key[i])
		}
	}
	if strings.HasSuffix(key[n:], "0") {
		return fmt.Errorf("%w: %q has a trailing zero", ErrInvalidKey, key)
	}
	return nil
}

// integerLength returns the length (head included) of the integer part
// announced by head.
func integerLength(head byte) (int, bool) {
	switch {
	case head >= 'a' && head <= 'z':
		return int(head-'a') + 2, true
	case head >= 'A' && head <= 'Z':
		return int('Z'-head) + 2, true
	}
	return 0, false
}

// integerPart assumes key has been validated.
func integerPart(key string) string {
	n, _ := integerLength(key[0])
	return key[:n]
}

// midpoint returns a fractional tail strictly between a and b, where an empty
// b stands for 1. Neither input may end in '0'.
func midpoint(a, b string) string {
	if b != "" {
		n := 0
		for n < len(b) && digitAt(a, n) == b[n] {
			n++
		}
		if n > 0 {
			return b[:n] + midpoint(tail(a, n), b[n:])
		}
	}

	da := 0
	if a != "" {
		da = strings.IndexByte(digits, a[0])
	}
	db := base
	if b != "" {
		db = strings.IndexByte(digits, b[0])
	}
	if db-da > 1 {
		return string(digits[(da+db)/2])
	}
	// Consecutive leading digits.
	if len(b) > 1 {
		return b[:1]
	}
	return string(digits[da]) + midpoint(tail(a, 1), "")
}

func digitAt(s string, i int) byte {
	if i < len(s) {
		return s[i]
	}
	return digits[0]
}

func tail(s string, n int) string {
	if n >= len(s) {
		return ""
	}
	return s[n:]
}

func increment(x string) (string, bool) {
	head := x[0]
	d := []byte(x[1:])
	carry := true
	for i := len(d) - 1; carry && i >= 0; i-- {
		v := strings.IndexByte(digits, d[i]) + 1
		if v == base {
			d[i] = digits[0]
		} else {
			d[i] = digits[v]
			carry = false
		}
	}
	if !carry {
		return string(head) + string(d), true
	}
	switch head {
	case 'Z':
		return "a" + string(digits[0]), true
	case 'z':
		return "", false
	}
	h := head + 1
	if h > 'a' {
		d = append(d, digits[0])
	} else {
		d = d[:len(d)-1]
	}
	return string(h) + string(d), true
}

func decrement(x string) (string, bool) {
	head := x[0]
	d := []byte(x[1:])
	borrow := true
	for i := len(d) - 1; borrow && i >= 0; i-- {
		v := strings.IndexByte(digits, d[i]) - 1
		if v < 0 {
			d[i] = digits[base-1]
		} else {
			d[i] = digits[v]
			borrow = false
		}
	}
	if !borrow {
		return string(head) + string(d), true
	}
	switch head {
	case 'a':
		return "Z" + string(digits[base-1]), true
	case 'A':
		return "", false
	}
	h := head - 1
	if h < 'Z' {
		d = append(d, digits[base-1])
	} else {
		d = d[:len(d)-1]
	}
	return string(h) + string(d), true
}
