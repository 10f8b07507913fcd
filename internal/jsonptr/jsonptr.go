package jsonptr

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var tokenReplacer = strings.NewReplacer("~1", "/", "~0", "~")

// Resolve returns the part of value addressed by pointer. The empty pointer
// addresses the whole value.
func Resolve(value any, pointer string) (any, error) {
	if pointer == "" {
		return value, nil
	}
	if !strings.HasPrefix(pointer, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPointer, pointer)
	}

	current := value
	for _, raw := range strings.Split(pointer[1:], "/") {
		token := tokenReplacer.Replace(raw)

		switch node := current.(type) {
		case []any:
			if token == "-" {
				return nil, fmt.Errorf("%w: '-' cannot be read", ErrToken)
			}
			index, err := parseIndex(token)
			if errors.Is(err, strconv.ErrRange) {
				return nil, fmt.Errorf("%w: %s (length %d)", ErrIndex, token, len(node))
			}
			if err != nil {
				return nil, fmt.Errorf("%w: %q", ErrToken, token)
			}
			if index >= len(node) {
				return nil, fmt.Errorf("%w: %d (length %d)", ErrIndex, index, len(node))
			}
			current = node[index]
		case map[string]any:
			next, ok := node[token]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrKeyMissing, token)
			}
			current = next
		default:
			return nil, fmt.Errorf("%w: %T at token %q", ErrNotIndexable, current, token)
		}
	}

	return current, nil
}

// ResolveText resolves pointer and renders the result as text. Strings are
// returned unchanged, anything else is encoded as compact JSON.
func ResolveText(value any, pointer string) (string, error) {
	target, err := Resolve(value, pointer)
	if err != nil {
		return "", err
	}
	return Text(target)
}

// Text renders a decoded JSON value as text.
func Text(value any) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", fmt.Errorf("failed to encode resolved value: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// parseIndex accepts only plain non-negative decimal integers. A numeric
// token too large for int fails with strconv.ErrRange.
func parseIndex(token string) (int, error) {
	if token == "" || strings.TrimLeft(token, "0123456789") != "" {
		return 0, strconv.ErrSyntax
	}
	index, err := strconv.Atoi(token)
	if errors.Is(err, strconv.ErrRange) {
		return 0, strconv.ErrRange
	}
	return index, err
}
