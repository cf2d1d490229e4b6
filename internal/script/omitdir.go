package script

import (
	"strings"

	"github.com/midbel/remind/internal/errs"
	"github.com/midbel/remind/internal/value"
)

// handleOmit implements the OMIT directive, reusing the REM field
// scanner's date/month/weekday token vocabulary: a full year+month+day
// triple omits that one date permanently, a bare month+day omits that
// calendar date every year, and bare weekday names add to the global
// weekday mask.
func (it *Interpreter) handleOmit(line Line) error {
	toks := tokenize(strings.TrimSpace(line.Raw))
	if len(toks) == 0 {
		return nil
	}
	toks = toks[1:] // drop "OMIT"

	year, month, day := -1, -1, -1
	var weekdays []uint8

	for _, t := range toks {
		tok := t.text
		if wd, ok := weekdayBits[strings.ToLower(tok)]; ok {
			weekdays = append(weekdays, wd)
			continue
		}
		if m, ok := monthNames[strings.ToLower(tok)]; ok {
			month = m
			continue
		}
		unquoted := strings.Trim(tok, "'\"")
		if dse, ok := parseISODate(unquoted); ok {
			y, m, d := value.DSEToYMD(dse)
			year, month, day = y, m, d
			continue
		}
		if n, ok := parsePlainInt(tok); ok {
			if day == -1 {
				day = n
			} else {
				year = n
			}
			continue
		}
		return errAt(line.File, line.LineNo, errs.Parse, "unrecognized OMIT field %q", tok)
	}

	for _, wd := range weekdays {
		if err := it.Omit.AddWeekday(bitToWeekday(wd)); err != nil {
			return errAt(line.File, line.LineNo, errs.KindOf(err), "%v", err)
		}
	}
	if month == -1 && day == -1 {
		return nil
	}
	if year != -1 {
		dse, ok := value.YMDToDSE(year, month, day)
		if !ok {
			return errAt(line.File, line.LineNo, errs.BadDate, "bad OMIT date %d-%d-%d", year, month, day)
		}
		return it.Omit.AddFull(dse)
	}
	it.Omit.AddPartial(month, day)
	return nil
}

func bitToWeekday(bit uint8) int {
	for i := 0; i < 7; i++ {
		if bit == 1<<uint(i) {
			return i
		}
	}
	return 0
}
