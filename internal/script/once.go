package script

import (
	"fmt"
	"os"
	"strings"

	"github.com/midbel/remind/internal/trigger"
	"github.com/midbel/remind/internal/value"
)

// LoadOnceFile reads the single ISO date line a ONCE-file holds: a
// ONCE reminder fires at most once, remembered across runs by a
// one-line marker file holding the last date it fired on.
func (it *Interpreter) LoadOnceFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			it.OnceDate = trigger.NoDate
			return nil
		}
		return err
	}
	line := strings.TrimSpace(string(data))
	if line == "" {
		it.OnceDate = trigger.NoDate
		return nil
	}
	dse, ok := parseISODate(line)
	if !ok {
		it.OnceDate = trigger.NoDate
		return nil
	}
	it.OnceDate = dse
	return nil
}

// SaveOnceFile persists today's date as the new ONCE marker, called
// after a run that fired at least one ONCE reminder.
func (it *Interpreter) SaveOnceFile(path string) error {
	y, m, d := value.DSEToYMD(it.Clock.Today)
	return os.WriteFile(path, []byte(fmt.Sprintf("%04d-%02d-%02d\n", y, m, d)), 0o644)
}
