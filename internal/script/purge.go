package script

import (
	"bufio"
	"os"
	"strings"

	"github.com/midbel/remind/internal/errs"
	"github.com/midbel/remind/internal/trigger"
	"github.com/midbel/remind/internal/value"
)

// Purge rewrites path, commenting out any non-repeating,
// already-expired REM line and prefixing the removed text with a
// "#!P:" marker so a later un-purge pass can find and restore it,
// instead of deleting the line outright.
//
// A reminder counts as purgeable when it is a fully dated one-shot
// (year, month and day given, no REP) strictly before today, when the
// resolver reports it expired (past its UNTIL date), or when it
// resolves to a date strictly before today. TODO and ONCE reminders
// are never purged (TODO items track their own completion via
// complete_through).
func (it *Interpreter) Purge(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	lines, err := readAllLines(f)
	f.Close()
	if err != nil {
		return 0, err
	}

	purged := 0
	for i, raw := range lines {
		trimmed := strings.TrimSpace(raw)
		if !strings.HasPrefix(strings.ToUpper(trimmed), "REM") {
			continue
		}
		line := classify(raw, path, i+1)
		rf, err := it.parseRemLine(line)
		if err != nil {
			continue // leave lines this parser can't understand untouched
		}
		t := rf.trig
		if t.IsTodo || t.Once {
			continue
		}
		// A fully-dated one-shot in the past never matches a forward
		// search from today; compare its date directly.
		if t.Repetition == 0 && t.Year != trigger.NoYear && t.Month != trigger.NoMonth && t.Day != trigger.NoDay && !t.OrdinalWeekday {
			if fixed, ok := value.YMDToDSE(t.Year, t.Month, t.Day); ok && fixed < it.Clock.Today {
				lines[i] = "#!P:" + raw
				purged++
			}
			continue
		}
		in := trigger.Input{Today: it.Clock.Today, TodayMinutes: it.Clock.TodayMinutes}
		dse, err := it.Resolver.Compute(t, in, nil)
		if err != nil {
			if errs.KindOf(err) == errs.Expired {
				lines[i] = "#!P:" + raw
				purged++
			}
			continue
		}
		if dse < it.Clock.Today {
			lines[i] = "#!P:" + raw
			purged++
		}
	}

	if purged == 0 {
		return 0, nil
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	for _, l := range lines {
		if _, err := w.WriteString(l); err != nil {
			return purged, err
		}
		if _, err := w.WriteString("\n"); err != nil {
			return purged, err
		}
	}
	return purged, w.Flush()
}

// Unpurge restores every "#!P:"-prefixed line in path to its original
// text, the inverse of Purge.
func (it *Interpreter) Unpurge(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	lines, err := readAllLines(f)
	f.Close()
	if err != nil {
		return 0, err
	}
	restored := 0
	for i, l := range lines {
		if strings.HasPrefix(l, "#!P:") {
			lines[i] = strings.TrimPrefix(l, "#!P:")
			restored++
		}
	}
	if restored == 0 {
		return 0, nil
	}
	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer out.Close()
	w := bufio.NewWriter(out)
	for _, l := range lines {
		if _, err := w.WriteString(l + "\n"); err != nil {
			return restored, err
		}
	}
	return restored, w.Flush()
}

func readAllLines(f *os.File) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}
