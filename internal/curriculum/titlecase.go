package curriculum

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TitleCase splits s on whitespace, upper-cases the first character of each
// word and joins the words with single spaces. The rest of each word is
// left untouched.
func TitleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
