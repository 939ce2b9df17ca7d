package mainframe

import (
	"fmt"
	"time"
)

const (
	// DisplayDateLayout is the MM/DD/YYYY form used on screens and requests
	DisplayDateLayout = "01/02/2006"
	// IIIDateLayout is the MMDDYY form used in III update messages
	IIIDateLayout = "010206"
	// StorageDateLayout is the ISO form kept in log snapshots
	StorageDateLayout = "2006-01-02"
)

// ParseDisplayDate parses an MM/DD/YYYY date in UTC
func ParseDisplayDate(value string) (time.Time, error) {
	t, err := time.ParseInLocation(DisplayDateLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected MM/DD/YYYY", value)
	}
	return t, nil
}

// FormatDisplayDate renders t as MM/DD/YYYY
func FormatDisplayDate(t time.Time) string {
	return t.Format(DisplayDateLayout)
}

// FormatStorageDate renders an optional date as YYYY-MM-DD, or "" when nil
func FormatStorageDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(StorageDateLayout)
}
