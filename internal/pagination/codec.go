// Package pagination encodes listing cursors.
//
// A cursor is a fixed-width string made of two base-61 numbers, the page
// number and a watermark in epoch milliseconds, separated by a run of '0'
// characters:
//
//	encode(page) + "000..." + encode(watermarkMillis)   // always 16 chars
//
// The base-61 alphabet starts at '1', so '0' never appears inside an encoded
// number and can be used as padding and as the split point.
package pagination

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// Base is the radix of the cursor numbers.
	Base = 61

	// TokenLength is the width of every encoded cursor.
	TokenLength = 16

	// MaxPartLength bounds each number inside a cursor.
	MaxPartLength = 11

	// Padding separates the page part from the watermark part.
	Padding = '0'
)

// alphabet maps digit values to symbols: 0-8 → '1'-'9', 9-34 → 'A'-'Z', 35-60 → 'a'-'z'.
const alphabet = "123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// maxWatermark is 9999-12-31T23:59:59.999Z.
var maxWatermark = time.Date(9999, time.December, 31, 23, 59, 59, 999_000_000, time.UTC).UnixMilli()

var (
	// ErrInvalidCursor is returned when a cursor cannot be decoded.
	ErrInvalidCursor = errors.New("invalid cursor")

	// ErrCursorOverflow is returned when a page or watermark does not fit in a cursor.
	ErrCursorOverflow = errors.New("cursor overflow")
)

// digitValues is the reverse lookup of alphabet; -1 marks symbols outside it.
var digitValues = func() [256]int8 {
	var table [256]int8
	for i := range table {
		table[i] = -1
	}

	for v, c := range []byte(alphabet) {
		table[c] = int8(v)
	}

	return table
}()

// Cursor is a decoded listing position.
type Cursor struct {
	// Page is the page number the cursor points to.
	Page uint64

	// Watermark is the lower bound (inclusive) on created_at for the page.
	Watermark time.Time
}

// EncodeNumber renders n in base 61, most significant digit first.
// Zero encodes to a single digit ("1") so a part is never empty.
func EncodeNumber(n uint64) string {
	if n == 0 {
		return alphabet[:1]
	}

	var buf [MaxPartLength + 1]byte

	i := len(buf)
	for n > 0 {
		i--
		buf[i] = alphabet[n%Base]
		n /= Base
	}

	return string(buf[i:])
}

// DecodeNumber parses a base-61 number produced by EncodeNumber.
func DecodeNumber(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("%w: empty number", ErrInvalidCursor)
	}

	var n uint64

	for i := 0; i < len(s); i++ {
		d := digitValues[s[i]]
		if d < 0 {
			return 0, fmt.Errorf("%w: unexpected character %q", ErrInvalidCursor, s[i])
		}

		if n > (math.MaxUint64-uint64(d))/Base {
			return 0, fmt.Errorf("%w: number out of range", ErrInvalidCursor)
		}

		n = n*Base + uint64(d)
	}

	return n, nil
}

// Encode builds the cursor for page and watermark.
func Encode(page uint64, watermark time.Time) (string, error) {
	millis := watermark.UnixMilli()
	if millis < 0 || millis > maxWatermark {
		return "", fmt.Errorf("%w: watermark %s outside the representable range", ErrCursorOverflow, watermark)
	}

	pagePart := EncodeNumber(page)
	markPart := EncodeNumber(uint64(millis))

	if len(pagePart) > MaxPartLength || len(markPart) > MaxPartLength {
		return "", fmt.Errorf("%w: part longer than %d characters", ErrCursorOverflow, MaxPartLength)
	}

	padding := TokenLength - len(pagePart) - len(markPart)
	if padding < 1 {
		return "", fmt.Errorf("%w: no room for the delimiter", ErrCursorOverflow)
	}

	var b strings.Builder

	b.Grow(TokenLength)
	b.WriteString(pagePart)
	b.WriteString(strings.Repeat(string(Padding), padding))
	b.WriteString(markPart)

	return b.String(), nil
}

// Decode parses a cursor produced by Encode.
func Decode(token string) (Cursor, error) {
	split := strings.IndexByte(token, Padding)

	switch {
	case split < 0:
		return Cursor{}, fmt.Errorf("%w: missing delimiter", ErrInvalidCursor)
	case split == 0:
		return Cursor{}, fmt.Errorf("%w: missing page part", ErrInvalidCursor)
	}

	pagePart := token[:split]
	markPart := strings.TrimLeft(token[split:], string(Padding))

	if markPart == "" {
		return Cursor{}, fmt.Errorf("%w: missing watermark part", ErrInvalidCursor)
	}

	if len(pagePart) > MaxPartLength || len(markPart) > MaxPartLength {
		return Cursor{}, fmt.Errorf("%w: part longer than %d characters", ErrInvalidCursor, MaxPartLength)
	}

	page, err := DecodeNumber(pagePart)
	if err != nil {
		return Cursor{}, err
	}

	millis, err := DecodeNumber(markPart)
	if err != nil {
		return Cursor{}, err
	}

	if millis > uint64(maxWatermark) {
		return Cursor{}, fmt.Errorf("%w: watermark out of range", ErrInvalidCursor)
	}

	return Cursor{
		Page:      page,
		Watermark: time.UnixMilli(int64(millis)).UTC(),
	}, nil
}
