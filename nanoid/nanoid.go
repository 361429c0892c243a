// Package nanoid wraps go-nanoid with the alphabets used across the
// project.
package nanoid

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	defaultSize = 16

	lowerAlphanum = "0123456789abcdefghijklmnopqrstuvwxyz"
	number        = "0123456789"
)

func getSize(l ...int) int {
	size := defaultSize
	if len(l) > 0 {
		size = l[0]
	}
	return size
}

// Must generates an optional length nanoid from the default alphabet
func Must(l ...int) string {
	return gonanoid.Must(getSize(l...))
}

// Lower generates an optional length lowercase alphanumeric nanoid
func Lower(l ...int) string {
	return gonanoid.MustGenerate(lowerAlphanum, getSize(l...))
}

// Number generates an optional length numeric nanoid
func Number(l ...int) string {
	return gonanoid.MustGenerate(number, getSize(l...))
}
