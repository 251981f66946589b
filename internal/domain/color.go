package domain

import "strings"

// colorFamilies folds shade names onto the base colour a shirt is sold as.
var colorFamilies = map[string]string{
    "red":     "red",
    "scarlet": "red",
    "crimson": "red",
    "maroon":  "red",
    "blue":    "blue",
    "navy":    "blue",
    "royal":   "blue",
    "sky":     "blue",
    "white":   "white",
    "black":   "black",
    "yellow":  "yellow",
    "gold":    "yellow",
    "amber":   "yellow",
    "green":   "green",
}

// ColorFamily returns the base colour of a colour name. Multi-word names use
// the first word with a known family ("Royal Blue" is blue); names with none
// come back lowercased with separators removed.
func ColorFamily(color string) string {
    words := strings.FieldsFunc(strings.ToLower(color), func(r rune) bool {
        return r == ' ' || r == '_' || r == '-' || r == '/'
    })
    for _, w := range words {
        if f, ok := colorFamilies[w]; ok {
            return f
        }
    }
    return strings.Join(words, "")
}

// SameColorFamily reports whether two non-empty colour names share a family.
func SameColorFamily(a, b string) bool {
    fa, fb := ColorFamily(a), ColorFamily(b)
    return fa != "" && fa == fb
}
