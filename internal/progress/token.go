// Package progress tracks in-flight builds by their work-done progress token.
package progress

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// DefaultPrefix is prepended to every minted build token.
const DefaultPrefix = "texlab-build"

// Token is an LSP ProgressToken: either an integer or a string. Tokens are
// comparable and can be used as map keys.
type Token struct {
	str   string
	num   int64
	isNum bool
}

// StringToken wraps a string token.
func StringToken(s string) Token { return Token{str: s} }

// NumberToken wraps an integer token.
func NumberToken(n int64) Token { return Token{num: n, isNum: true} }

// NewToken mints a fresh token of the form "<prefix>-<uuid>".
func NewToken(prefix string) Token {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return StringToken(prefix + "-" + uuid.NewString())
}

// Wildcard returns the token that addresses every build minted with prefix.
func Wildcard(prefix string) Token {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return StringToken(prefix + "-*")
}

// IsNumber reports whether the token is an integer token.
func (t Token) IsNumber() bool { return t.isNum }

// IsZero reports whether the token is unset.
func (t Token) IsZero() bool { return !t.isNum && t.str == "" }

func (t Token) String() string {
	if t.isNum {
		return strconv.FormatInt(t.num, 10)
	}
	return t.str
}

// MarshalJSON encodes the token as a JSON number or string.
func (t Token) MarshalJSON() ([]byte, error) {
	if t.isNum {
		return []byte(strconv.FormatInt(t.num, 10)), nil
	}
	return json.Marshal(t.str)
}

// UnmarshalJSON accepts a JSON number or string.
func (t *Token) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = Token{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = StringToken(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("progress token must be an integer or string: %w", err)
	}
	*t = NumberToken(n)
	return nil
}
