package buffer

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/midbel/remind/internal/value"
)

// Dump renders the buffer's sorted entries as a debug table, replacing
// the hand-rolled fmt.Printf column layout (list.go's
// ListEntries) with github.com/olekukonko/tablewriter for the CLI's
// -list-entries debug flag.
func Dump(w io.Writer, entries []Entry) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "date", "time", "prio", "body"})
	for i, e := range entries {
		y, m, d := value.DSEToYMD(e.Date)
		dateStr := fmt.Sprintf("%04d-%02d-%02d", y, m, d)
		timeStr := "*"
		if e.Time >= 0 {
			timeStr = fmt.Sprintf("%02d:%02d", e.Time/60, e.Time%60)
		}
		table.Append([]string{
			strconv.Itoa(i + 1),
			dateStr,
			timeStr,
			strconv.Itoa(e.Priority),
			e.Body,
		})
	}
	table.Render()
}
