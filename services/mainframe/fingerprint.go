package mainframe

import (
	"errors"
	"fmt"
	"strings"
)

// handMapping pairs each stored digit with its display character
const handMapping = "1A2W3\\4/5X8?9U0U"

// HandWidth is the stored width of one hand's pattern
const HandWidth = 5

// ErrInvalidPatternCharacter is returned for display characters with no stored digit
var ErrInvalidPatternCharacter = errors.New("invalid fingerprint pattern character")

// ErrUnpairedPattern is returned when only one hand is supplied
var ErrUnpairedPattern = errors.New("Invalid Pattern Update: Both Right and Left Pattern Types must be populated or cleared together.")

// HandToDisplay converts a stored MAFIS hand code into display characters.
// Characters without a mapping are passed through.
func HandToDisplay(stored string) string {
	var b strings.Builder
	for _, c := range stored {
		idx := strings.IndexRune(handMapping, c)
		if idx >= 0 && idx%2 == 0 {
			b.WriteByte(handMapping[idx+1])
		} else {
			b.WriteRune(c)
		}
	}
	return b.String()
}

// DisplayToHand converts display characters back to stored digits.
// A blank input means removal and yields "".
func DisplayToHand(display string) (string, error) {
	if strings.TrimSpace(display) == "" {
		return "", nil
	}

	var b strings.Builder
	for _, c := range strings.ToUpper(display) {
		switch c {
		case 'A':
			b.WriteByte('1')
		case 'W':
			b.WriteByte('2')
		case '\\':
			b.WriteByte('3')
		case '/':
			b.WriteByte('4')
		case 'X':
			b.WriteByte('5')
		case '?':
			b.WriteByte('8')
		case 'U':
			b.WriteByte('9')
		case ' ':
			b.WriteByte(' ')
		default:
			return "", fmt.Errorf("%w: %c", ErrInvalidPatternCharacter, c)
		}
	}
	return b.String(), nil
}

// EncodeHands converts a right/left display pair into the stored ten-character code.
// Both blank yields nil (removal); exactly one blank is rejected.
func EncodeHands(right, left string) (*string, error) {
	right = strings.TrimSpace(right)
	left = strings.TrimSpace(left)
	if (right == "") != (left == "") {
		return nil, ErrUnpairedPattern
	}

	r, err := DisplayToHand(right)
	if err != nil {
		return nil, err
	}
	l, err := DisplayToHand(left)
	if err != nil {
		return nil, err
	}
	if r == "" && l == "" {
		return nil, nil
	}

	code := fmt.Sprintf("%-5s%-5s", r, l)
	return &code, nil
}

// DecodeHands splits a stored code into right and left display strings
func DecodeHands(stored string) (right, left string) {
	if len(stored) > HandWidth {
		right, left = stored[:HandWidth], stored[HandWidth:]
	} else {
		right = stored
	}
	return strings.TrimRight(HandToDisplay(right), " "), strings.TrimRight(HandToDisplay(left), " ")
}
