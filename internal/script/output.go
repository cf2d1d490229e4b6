package script

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/midbel/remind/internal/value"
)

// EmitPlain writes one line per occurrence, the default "plain" listing
// format, one fmt.Fprintf column per line.
func EmitPlain(w io.Writer, occs []Occurrence) error {
	for _, o := range occs {
		y, m, d := value.DSEToYMD(o.Date)
		if o.Time >= 0 {
			if _, err := fmt.Fprintf(w, "%04d-%02d-%02d %02d:%02d %s\n", y, m, d, o.Time/60, o.Time%60, o.Body); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "%04d-%02d-%02d %s\n", y, m, d, o.Body); err != nil {
			return err
		}
	}
	return nil
}

// EmitSimpleCal groups occurrences by date and writes a day-by-day
// calendar listing, a text-only analogue of remind's -c calendar mode.
func EmitSimpleCal(w io.Writer, occs []Occurrence) error {
	var lastDate int32 = -1
	for _, o := range occs {
		if o.Date != lastDate {
			y, m, d := value.DSEToYMD(o.Date)
			if lastDate != -1 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if _, err := fmt.Fprintf(w, "%04d-%02d-%02d:\n", y, m, d); err != nil {
				return err
			}
			lastDate = o.Date
		}
		if o.Time >= 0 {
			if _, err := fmt.Fprintf(w, "  %02d:%02d %s\n", o.Time/60, o.Time%60, o.Body); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintf(w, "  %s\n", o.Body); err != nil {
			return err
		}
	}
	return nil
}

// jsonOccurrence is the JSON wire shape for the "json" output format:
// date/filename/lineno unconditional; lineno_start only when it
// differs from lineno; passthru unconditional even when empty;
// duration/time/tdelta/trep/if_depth/nonconst_expr only when truthy;
// r/g/b only as a complete valid 0..255 triple.
type jsonOccurrence struct {
	Date         string            `json:"date"`
	Filename     string            `json:"filename"`
	Lineno       int               `json:"lineno"`
	LinenoStart  *int              `json:"lineno_start,omitempty"`
	Passthru     string            `json:"passthru"`
	Duration     *int              `json:"duration,omitempty"`
	Time         *int              `json:"time,omitempty"`
	TDelta       *int              `json:"tdelta,omitempty"`
	TRep         *int              `json:"trep,omitempty"`
	R            *int              `json:"r,omitempty"`
	G            *int              `json:"g,omitempty"`
	B            *int              `json:"b,omitempty"`
	IfDepth      *int              `json:"if_depth,omitempty"`
	NonconstExpr *int              `json:"nonconst_expr,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Info         map[string]string `json:"info,omitempty"`
	Body         string            `json:"body"`
}

func intPtr(n int) *int { return &n }

// EmitJSON writes occs as a JSON array, one object per occurrence.
func EmitJSON(w io.Writer, occs []Occurrence) error {
	out := make([]jsonOccurrence, 0, len(occs))
	for _, o := range occs {
		y, m, d := value.DSEToYMD(o.Date)
		jo := jsonOccurrence{
			Date:     fmt.Sprintf("%04d-%02d-%02d", y, m, d),
			Filename: o.File,
			Lineno:   o.Line,
			Passthru: o.PassthruPayload,
			Tags:     o.Tags,
			Info:     o.Info,
			Body:     o.Body,
		}
		if o.LineStart != 0 && o.LineStart != o.Line {
			jo.LinenoStart = intPtr(o.LineStart)
		}
		if o.DurationDays != 0 {
			jo.Duration = intPtr(o.DurationDays)
		}
		if o.Time >= 0 {
			jo.Time = intPtr(o.Time)
		}
		if o.TDelta != 0 {
			jo.TDelta = intPtr(o.TDelta)
		}
		if o.TRep != 0 {
			jo.TRep = intPtr(o.TRep)
		}
		if o.IfDepth != 0 {
			jo.IfDepth = intPtr(o.IfDepth)
		}
		if o.NonConst {
			jo.NonconstExpr = intPtr(1)
		}
		if o.ColorR >= 0 && o.ColorR <= 255 && o.ColorG >= 0 && o.ColorG <= 255 && o.ColorB >= 0 && o.ColorB <= 255 {
			jo.R, jo.G, jo.B = intPtr(o.ColorR), intPtr(o.ColorG), intPtr(o.ColorB)
		}
		out = append(out, jo)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// NextOccurrence implements the "-n" supplemented feature: the single
// earliest-dated occurrence, or false if none are queued.
func NextOccurrence(occs []Occurrence) (Occurrence, bool) {
	if len(occs) == 0 {
		return Occurrence{}, false
	}
	return occs[0], true
}
