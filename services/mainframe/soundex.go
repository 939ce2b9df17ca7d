// Package mainframe holds the pure field codecs shared with the legacy identification extracts.
package mainframe

import "strings"

// soundexMapping is the American Soundex digit for A..Z
const soundexMapping = "01230120022455012623010202"

// Soundex returns the four-character American Soundex code for name.
// Non-letters are ignored, H and W never separate duplicate digits,
// and an input without letters yields "".
func Soundex(name string) string {
	letters := make([]byte, 0, len(name))
	for _, r := range strings.ToUpper(name) {
		if r >= 'A' && r <= 'Z' {
			letters = append(letters, byte(r))
		}
	}
	if len(letters) == 0 {
		return ""
	}

	out := []byte{'0', '0', '0', '0'}
	out[0] = letters[0]
	count := 1
	last := soundexMapping[letters[0]-'A']

	for _, ch := range letters[1:] {
		if count == len(out) {
			break
		}
		if ch == 'H' || ch == 'W' {
			continue
		}
		digit := soundexMapping[ch-'A']
		if digit != '0' && digit != last {
			out[count] = digit
			count++
		}
		last = digit
	}
	return string(out)
}
