package core

import (
	"bytes"
	"fmt"
	"regexp"
)

// loginFieldWidth is the fixed width of a login embedded in a header or
// payload; shorter values are zero-padded, longer values are rejected.
const loginFieldWidth = 64

// maxDescription is the largest UTF-8 description a ClassicTransaction may carry.
const maxDescription = 256

var loginPattern = regexp.MustCompile(`^[a-z]+(?:-[a-z]+)*\.[a-z]+(?:-[a-z]+)*$`)

// ValidateLogin checks the `<first>.<last>` grammar: lowercase letters with
// optional internal hyphens, each side at least two characters.
func ValidateLogin(login string) error {
	if !loginPattern.MatchString(login) {
		return fmt.Errorf("%w: %q", ErrLoginInvalid, login)
	}
	parts := splitLogin(login)
	if len(parts[0]) < 2 || len(parts[1]) < 2 {
		return fmt.Errorf("%w: %q", ErrLoginInvalid, login)
	}
	return nil
}

func splitLogin(login string) [2]string {
	i := bytes.IndexByte([]byte(login), '.')
	if i < 0 {
		return [2]string{login, ""}
	}
	return [2]string{login[:i], login[i+1:]}
}

// encodeLogin zero-pads login into a fixed-width field. Callers must have
// already validated login and confirmed it fits loginFieldWidth bytes.
func encodeLogin(login string) ([]byte, error) {
	if len(login) > loginFieldWidth {
		return nil, fmt.Errorf("%w: login %q exceeds %d bytes", ErrInvalidPayload, login, loginFieldWidth)
	}
	buf := make([]byte, loginFieldWidth)
	copy(buf, login)
	return buf, nil
}

// decodeLogin trims the trailing zero padding from a fixed-width login field.
func decodeLogin(b []byte) string {
	return string(bytes.TrimRight(b, "\x00"))
}
