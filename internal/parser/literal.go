package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/midbel/remind/internal/value"
)

// parseTimeLiteral parses "H:M", "H.M", "H<sep>M" with an optional
// am/pm suffix (hour must be 1..12 in am/pm mode).
func parseTimeLiteral(s string) (value.Value, error) {
	lower := strings.ToLower(s)
	ampm := ""
	if strings.HasSuffix(lower, "am") || strings.HasSuffix(lower, "pm") {
		ampm = lower[len(lower)-2:]
		s = s[:len(s)-2]
	}
	sep := value.TimeSep
	var parts []string
	switch {
	case sep != "" && strings.Contains(s, sep):
		parts = strings.SplitN(s, sep, 2)
	case strings.Contains(s, "."):
		parts = strings.SplitN(s, ".", 2)
	case strings.Contains(s, ":"):
		parts = strings.SplitN(s, ":", 2)
	default:
		return value.NewErr(), fmt.Errorf("bad time literal %q", s)
	}
	if len(parts) != 2 {
		return value.NewErr(), fmt.Errorf("bad time literal %q", s)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil || m < 0 || m > 59 {
		return value.NewErr(), fmt.Errorf("bad time literal %q", s)
	}
	if ampm != "" {
		if h < 1 || h > 12 {
			return value.NewErr(), fmt.Errorf("am/pm hour out of range in %q", s)
		}
		h %= 12
		if ampm == "pm" {
			h += 12
		}
	} else if h < 0 || h > 23 {
		return value.NewErr(), fmt.Errorf("hour out of range in %q", s)
	}
	return value.NewTime(h*60 + m), nil
}

// parseDateLiteral parses 'YYYY-MM-DD'.
func parseDateLiteral(s string) (value.Value, error) {
	var y, m, d int
	if _, err := fmt.Sscanf(s, "%d-%d-%d", &y, &m, &d); err != nil {
		return value.NewErr(), fmt.Errorf("bad date literal %q", s)
	}
	dse, ok := value.YMDToDSE(y, m, d)
	if !ok {
		return value.NewErr(), fmt.Errorf("date out of range %q", s)
	}
	return value.NewDate(dse), nil
}

// parseDateTimeLiteral parses 'YYYY-MM-DD[T@ ]H:M'.
func parseDateTimeLiteral(s string) (value.Value, error) {
	idx := -1
	for i := 0; i < len(s); i++ {
		if s[i] == 'T' || s[i] == '@' || s[i] == ' ' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return value.NewErr(), fmt.Errorf("bad datetime literal %q", s)
	}
	dv, err := parseDateLiteral(s[:idx])
	if err != nil {
		return value.NewErr(), err
	}
	tv, err := parseTimeLiteral(s[idx+1:])
	if err != nil {
		return value.NewErr(), err
	}
	return value.NewDateTime(dv.DSE(), int(tv.TimeMinutes())), nil
}
