// Package utils holds the small shared helpers of symbograft: error
// context wrapping and environment lookups for the CLI layer.
package utils

import "fmt"

// Wrap prefixes err with message, keeping the original error available
// to errors.Is/As through %w. It returns nil if err is nil, so call
// sites can wrap unconditionally.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
