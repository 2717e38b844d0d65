// Package sanitize checks messages received from remote callers before
// they reach the parser.
package sanitize

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxMessageSize is 16MB.
	DefaultMaxMessageSize = 16 << 20
	// EnvMaxMessageSize overrides the default limit.
	EnvMaxMessageSize = "MERITS_MAX_MESSAGE_SIZE"
)

var (
	ErrMessageTooLarge = errors.New("message exceeds maximum allowed size")
	ErrInvalidUTF8     = errors.New("message contains invalid UTF-8 sequences")
)

const bom = "\uFEFF"

// Message enforces the size limit, validates UTF-8, drops a leading byte
// order mark and strips control characters other than newline, carriage
// return and tab.
func Message(input string) (string, error) {
	limit := MaxMessageSize()
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrMessageTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}
	input = strings.TrimPrefix(input, bom)

	if !strings.ContainsFunc(input, unsafe) {
		return input, nil
	}
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unsafe(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func unsafe(r rune) bool {
	return unicode.IsControl(r) && r != '\n' && r != '\t' && r != '\r'
}

// MaxMessageSize returns the limit in bytes, from EnvMaxMessageSize when set.
func MaxMessageSize() int {
	if val := os.Getenv(EnvMaxMessageSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxMessageSize
}
