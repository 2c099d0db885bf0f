package format

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// AvatarPalette is the set of background classes AvatarColor picks from.
var AvatarPalette = []string{
	"bg-red-500",
	"bg-blue-500",
	"bg-green-500",
	"bg-yellow-500",
	"bg-purple-500",
	"bg-pink-500",
	"bg-indigo-500",
	"bg-teal-500",
}

// Initials returns up to two uppercase initials of a display name, one per
// space-separated word.
func Initials(name string) string {
	var b strings.Builder
	for _, word := range strings.Split(name, " ") {
		for _, r := range word {
			b.WriteRune(r)
			break
		}
	}

	// A Caser keeps state, so one is made per call.
	out := []rune(cases.Upper(language.Und).String(b.String()))
	if len(out) > 2 {
		out = out[:2]
	}
	return string(out)
}

// AvatarColor maps a name to a stable entry of AvatarPalette. The hash is the
// 32-bit string hash web front ends use (h = c + (h<<5) - h over UTF-16 code
// units), so every client agrees on a user's color.
func AvatarColor(name string) string {
	return AvatarPalette[avatarIndex(name, len(AvatarPalette))]
}

func avatarIndex(name string, n int) int {
	// The accumulator is not truncated between steps; only the shift operand
	// is taken as int32.
	var acc int64
	for _, c := range utf16.Encode([]rune(name)) {
		acc = int64(c) + int64(int32(acc)<<5) - acc
	}
	if acc < 0 {
		acc = -acc
	}
	return int(acc % int64(n))
}
