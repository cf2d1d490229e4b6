package script

import (
	"strconv"
	"strings"

	"github.com/midbel/remind/internal/buffer"
	"github.com/midbel/remind/internal/errs"
	"github.com/midbel/remind/internal/subst"
	"github.com/midbel/remind/internal/trigger"
	"github.com/midbel/remind/internal/value"
)

var monthNames = map[string]int{
	"jan": 1, "january": 1, "feb": 2, "february": 2, "mar": 3, "march": 3,
	"apr": 4, "april": 4, "may": 5, "jun": 6, "june": 6, "jul": 7, "july": 7,
	"aug": 8, "august": 8, "sep": 9, "september": 9, "oct": 10, "october": 10,
	"nov": 11, "november": 11, "dec": 12, "december": 12,
}

var weekdayBits = map[string]uint8{
	"sun": 1 << 0, "sunday": 1 << 0,
	"mon": 1 << 1, "monday": 1 << 1,
	"tue": 1 << 2, "tuesday": 1 << 2,
	"wed": 1 << 3, "wednesday": 1 << 3,
	"thu": 1 << 4, "thursday": 1 << 4,
	"fri": 1 << 5, "friday": 1 << 5,
	"sat": 1 << 6, "saturday": 1 << 6,
}

var typeKeywords = map[string]trigger.RemType{
	"MSG": trigger.TypeMsg, "MSF": trigger.TypeMsf, "RUN": trigger.TypeRun,
	"CAL": trigger.TypeCal, "PS": trigger.TypePs, "PSF": trigger.TypePsf,
	"PASSTHRU": trigger.TypePassthru, "SAT": trigger.TypeSat,
}

// passthruPayloadLen caps the passthru payload token; longer tokens
// are truncated.
const passthruPayloadLen = 14

// remFields is the parsed-but-not-yet-resolved shape of one REM line:
// the Trigger plus the pieces that aren't part of that record: the
// output type, its body template, and the raw SATISFY expression
// source (kept as text until the resolver is ready to evaluate it
// candidate by candidate).
type remFields struct {
	trig       *trigger.Trigger
	bodyType   trigger.RemType
	body       string
	satisfyTxt string
	nonconst   bool // tainted by any [expr] field evaluation while parsing
}

// parseRemLine implements the REM field grammar: an order-tolerant
// scan of keyword/date/weekday/number tokens up to the first
// output-type keyword (MSG, RUN, ...), after which the rest of the
// line is the body template verbatim.
func (it *Interpreter) parseRemLine(line Line) (*remFields, error) {
	raw := strings.TrimSpace(line.Raw)
	// drop the leading "REM" keyword itself
	toks := tokenize(raw)
	if len(toks) == 0 || !strings.EqualFold(toks[0].text, "REM") {
		return nil, errAt(line.File, line.LineNo, errs.Parse, "not a REM line")
	}
	toks = toks[1:]

	t := &trigger.Trigger{
		Year: trigger.NoYear, Month: trigger.NoMonth, Day: trigger.NoDay,
		Delta: trigger.NoDelta, Until: trigger.NoDate, ScanFrom: trigger.NoScanFrom,
		From: trigger.NoDate, CompleteThrough: trigger.NoDate, MaxOverdue: trigger.NoOverdue,
		Info: map[string]string{},
		Time: trigger.TimeTrig{TTime: trigger.NoTime, Delta: trigger.NoDelta, Duration: trigger.NoDuration},
		ColorR: trigger.NoColor, ColorG: trigger.NoColor, ColorB: trigger.NoColor,
	}
	f := &remFields{trig: t, bodyType: trigger.TypeMsg}

	i := 0
	for i < len(toks) {
		tok := toks[i].text
		upper := strings.ToUpper(tok)

		if rt, ok := typeKeywords[upper]; ok {
			f.bodyType = rt
			if rt == trigger.TypePassthru {
				// PASSTHRU takes one extra token, its payload, before
				// the body starts.
				i++
				if i >= len(toks) {
					return nil, errAt(line.File, line.LineNo, errs.Parse, "PASSTHRU requires a payload token")
				}
				payload := toks[i].text
				if len(payload) > passthruPayloadLen {
					payload = payload[:passthruPayloadLen]
				}
				t.PassthruPayload = payload
				f.body = strings.TrimPrefix(raw[toks[i].end:], " ")
				resolvePassthruColor(f)
			} else {
				rest, _ := bodyAfterKeyword(raw, tok)
				f.body = rest
			}
			i = len(toks)
			break
		}

		switch upper {
		case "ONCE":
			t.Once = true
			i++
		case "TODO":
			t.IsTodo = true
			i++
		case "NOQUEUE":
			t.NoQueue = true
			i++
		case "ADDOMIT":
			t.AddOmit = true
			i++
		case "LAST":
			t.AdjForLast = true
			i++
		case "THROUGH":
			i++
			d, nc, err := it.parseDateToken(peek(toks, i))
			if err != nil {
				return nil, lineErr(line, err)
			}
			f.nonconst = f.nonconst || nc
			t.CompleteThrough = d
			i++
		case "UNTIL":
			i++
			d, nc, err := it.parseDateToken(peek(toks, i))
			if err != nil {
				return nil, lineErr(line, err)
			}
			f.nonconst = f.nonconst || nc
			t.Until = d
			i++
		case "FROM":
			i++
			d, nc, err := it.parseDateToken(peek(toks, i))
			if err != nil {
				return nil, lineErr(line, err)
			}
			f.nonconst = f.nonconst || nc
			t.From = d
			i++
		case "SCANFROM":
			i++
			tokTxt := peek(toks, i)
			if n, ok := parseSignedInt(tokTxt); ok {
				t.ScanFrom = n
			} else {
				d, nc, err := it.parseDateToken(tokTxt)
				if err != nil {
					return nil, lineErr(line, err)
				}
				f.nonconst = f.nonconst || nc
				t.ScanFrom = d
			}
			i++
		case "BACK":
			i++
			n, err := parseIntToken(peek(toks, i))
			if err != nil {
				return nil, lineErr(line, err)
			}
			t.Back = -n // BACK N means "N non-omitted days back"
			i++
		case "REP":
			i++
			n, err := parseIntToken(peek(toks, i))
			if err != nil {
				return nil, lineErr(line, err)
			}
			t.Repetition = n
			i++
		case "MAXOVERDUE":
			i++
			n, err := parseIntToken(peek(toks, i))
			if err != nil {
				return nil, lineErr(line, err)
			}
			t.MaxOverdue = n
			i++
		case "SKIP":
			i++
			switch strings.ToUpper(peek(toks, i)) {
			case "AFTER":
				t.SkipMode = trigger.SkipAfter
				i++
			case "BEFORE":
				t.SkipMode = trigger.SkipBefore
				i++
			default:
				t.SkipMode = trigger.SkipSkip
			}
		case "PRIORITY":
			i++
			n, err := parseIntToken(peek(toks, i))
			if err != nil {
				return nil, lineErr(line, err)
			}
			t.Priority = n
			i++
		case "TAG":
			i++
			t.Tags = append(t.Tags, peek(toks, i))
			i++
		case "INFO":
			i++
			key := peek(toks, i)
			i++
			val := peek(toks, i)
			i++
			t.Info[key] = val
		case "WARN":
			i++
			t.WarnFunc = peek(toks, i)
			i++
		case "SCHED":
			i++
			t.SchedFunc = peek(toks, i)
			i++
		case "OMIT":
			// a REM-embedded OMIT clause: consume following weekday
			// names into the reminder's local omit mask, distinct from
			// the global OMIT directive and from bare weekday
			// constraint tokens.
			i++
			n := 0
			for i < len(toks) {
				wd, ok := weekdayBits[strings.ToLower(toks[i].text)]
				if !ok {
					break
				}
				t.LocalOmitMask |= wd
				n++
				i++
			}
			if n == 0 {
				return nil, errAt(line.File, line.LineNo, errs.Parse, "OMIT requires at least one weekday name")
			}
		case "OMITFUNC":
			i++
			t.OmitFunc = peek(toks, i)
			i++
		case "TIMEZONE", "TZ":
			i++
			t.TimeZone = strings.Trim(peek(toks, i), "'\"")
			i++
		case "DURATION":
			i++
			n, err := parseIntToken(peek(toks, i))
			if err != nil {
				return nil, lineErr(line, err)
			}
			t.Time.Duration = n
			i++
		case "AT":
			i++
			m, err := parseTimeToken(peek(toks, i))
			if err != nil {
				return nil, lineErr(line, err)
			}
			t.Time.TTime = m
			t.Time.TTimeOrig = m
			i++
		case "SATISFY":
			i++
			f.satisfyTxt = strings.Trim(peek(toks, i), "[]")
			// a predicate may never come true within the search cap
			t.MaybeUncomputable = true
			i++
		default:
			if wd, ok := weekdayBits[strings.ToLower(tok)]; ok {
				t.WeekdayMask |= wd
				i++
				continue
			}
			if m, ok := monthNames[strings.ToLower(tok)]; ok {
				t.Month = m
				i++
				continue
			}
			if ord, isLast, ok := parseOrdinal(tok); ok {
				t.OrdinalWeekday = true
				if isLast {
					t.Day = -1
				} else {
					t.Day = ord
				}
				i++
				continue
			}
			if n, ok := parsePlainInt(tok); ok {
				if t.Day == trigger.NoDay {
					t.Day = n
				} else {
					t.Year = n
				}
				i++
				continue
			}
			if strings.HasPrefix(tok, "[") {
				n, nc, err := it.evalBracketInt(tok, line)
				if err != nil {
					return nil, err
				}
				f.nonconst = f.nonconst || nc
				if t.Day == trigger.NoDay {
					t.Day = n
				} else {
					t.Year = n
				}
				i++
				continue
			}
			if strings.HasPrefix(tok, "+") || (strings.HasPrefix(tok, "-") && len(tok) > 1) {
				if n, ok := parseDeltaToken(tok); ok {
					t.Delta = n
					i++
					continue
				}
			}
			return nil, errAt(line.File, line.LineNo, errs.Parse, "unrecognized REM field %q", tok)
		}
	}

	t.DurationDays = trigger.ComputeDurationDays(&t.Time)
	return f, nil
}

// resolvePassthruColor handles the COLOR special case: a PASSTHRU
// reminder whose payload is COLOR/COLOUR consumes its body's first
// three tokens as an r/g/b triple and reverts to an ordinary MSG
// reminder. An out-of-range or unparseable triple clears the payload
// and leaves plain PASSTHRU output.
func resolvePassthruColor(f *remFields) {
	t := f.trig
	payload := strings.ToUpper(strings.TrimSpace(t.PassthruPayload))
	if payload != "COLOR" && payload != "COLOUR" {
		return
	}
	toks := tokenize(f.body)
	if len(toks) < 3 {
		return
	}
	r, err1 := strconv.Atoi(toks[0].text)
	g, err2 := strconv.Atoi(toks[1].text)
	b, err3 := strconv.Atoi(toks[2].text)
	valid := err1 == nil && err2 == nil && err3 == nil &&
		r >= 0 && r <= 255 && g >= 0 && g <= 255 && b >= 0 && b <= 255
	if !valid {
		t.PassthruPayload = ""
		return
	}
	t.ColorR, t.ColorG, t.ColorB = r, g, b
	t.PassthruPayload = ""
	f.bodyType = trigger.TypeMsg
	f.body = strings.TrimPrefix(f.body[toks[2].end:], " ")
}

// appendMsgSuffix implements the Normal-mode msgsuffix() hook: if
// msgsuffix() is defined and returns a string starting with a
// backspace escape, that leading backspace is dropped and the
// remainder is appended to the body, landing before whatever trailing
// newline the output emitter adds.
func appendMsgSuffix(body string, msgsuffix func() (string, bool)) string {
	suffix, ok := msgsuffix()
	if !ok {
		return body
	}
	if strings.HasPrefix(suffix, "\b") {
		suffix = suffix[len("\b"):]
	}
	return body + suffix
}

func peek(toks []posTok, i int) string {
	if i < 0 || i >= len(toks) {
		return ""
	}
	return toks[i].text
}

func lineErr(line Line, err error) error {
	return errAt(line.File, line.LineNo, errs.KindOf(err), "%v", err)
}

// parseDateToken resolves a REM date-field token: a quoted
// 'YYYY-MM-DD' literal, a bracket expression (evaluated against the
// shared evaluator), or a bare token handled by the caller (numbers/
// month names go through the main field scanner instead). The second
// return reports whether evaluating a bracket expression tainted
// nonconst, feeding the JSON nonconst_expr field.
func (it *Interpreter) parseDateToken(tok string) (int32, bool, error) {
	tok = strings.TrimSpace(tok)
	if strings.HasPrefix(tok, "[") {
		root, err := it.parseExpr(strings.Trim(tok, "[]"))
		if err != nil {
			return trigger.NoDate, false, err
		}
		v, nc, err := it.Eval.Eval(root, nil)
		if err != nil {
			return trigger.NoDate, nc, err
		}
		cv, err := value.Coerce(v, value.Date, it.StringCap)
		if err != nil {
			return trigger.NoDate, nc, err
		}
		return cv.DSE(), nc, nil
	}
	unquoted := strings.Trim(tok, "'\"")
	if dse, ok := parseISODate(unquoted); ok {
		return dse, false, nil
	}
	return trigger.NoDate, false, errs.New(errs.BadDate, "bad date field %q", tok)
}

// evalBracketInt evaluates a bare "[expr]" REM field (a day/year
// field embedding a full expression, e.g. "[f(3) + 4]") against the
// shared evaluator and coerces the result to Int, for use anywhere a
// plain numeric day/year token would otherwise be written literally.
// The second return reports whether the evaluation tainted nonconst.
func (it *Interpreter) evalBracketInt(tok string, line Line) (int, bool, error) {
	root, err := it.parseExpr(strings.Trim(tok, "[]"))
	if err != nil {
		return 0, false, lineErr(line, err)
	}
	v, nc, err := it.Eval.Eval(root, nil)
	if err != nil {
		return 0, nc, lineErr(line, err)
	}
	cv, err := value.Coerce(v, value.Int, it.StringCap)
	if err != nil {
		return 0, nc, lineErr(line, err)
	}
	return int(cv.Int()), nc, nil
}

func parseIntToken(tok string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(tok))
	if err != nil {
		return 0, errs.New(errs.BadNumber, "bad integer field %q", tok)
	}
	return n, nil
}

func parseSignedInt(tok string) (int32, bool) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return int32(n), true
}

func parsePlainInt(tok string) (int, bool) {
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseOrdinal parses REM's "1st"/"2nd"/"3rd"/"4th"/"5th"/"last" day
// form used with a weekday mask, e.g. "2nd Tue" or "last Fri".
func parseOrdinal(tok string) (n int, isLast bool, ok bool) {
	lower := strings.ToLower(tok)
	if lower == "last" {
		return 0, true, true
	}
	for _, suf := range []string{"st", "nd", "rd", "th"} {
		if strings.HasSuffix(lower, suf) {
			digits := strings.TrimSuffix(lower, suf)
			if v, err := strconv.Atoi(digits); err == nil && v >= 1 && v <= 5 {
				return v, false, true
			}
		}
	}
	return 0, false, false
}

// parseDeltaToken parses "+N" (omit-aware warn window) and "++N" (raw
// calendar-day window, encoded as a negative Delta per
// trigger.Trigger's "negative means no skip over omits" convention).
func parseDeltaToken(tok string) (int, bool) {
	switch {
	case strings.HasPrefix(tok, "++"):
		n, err := strconv.Atoi(tok[2:])
		if err != nil {
			return 0, false
		}
		return -n, true
	case strings.HasPrefix(tok, "+"):
		n, err := strconv.Atoi(tok[1:])
		if err != nil {
			return 0, false
		}
		return n, true
	case strings.HasPrefix(tok, "-"):
		n, err := strconv.Atoi(tok[1:])
		if err != nil {
			return 0, false
		}
		return -n, true
	}
	return 0, false
}

// parseTimeToken parses "AT" field values: "HH:MM", or a plain integer,
// read as HHMM up to 2359 and as minutes past midnight above that.
func parseTimeToken(tok string) (int, error) {
	tok = strings.Trim(tok, "'\"")
	if strings.Contains(tok, ":") {
		parts := strings.SplitN(tok, ":", 2)
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return 0, errs.New(errs.BadTime, "bad time field %q", tok)
		}
		return h*60 + m, nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, errs.New(errs.BadTime, "bad time field %q", tok)
	}
	if n > 2359 {
		return n, nil // already minutes
	}
	return (n/100)*60 + n%100, nil
}

// handleRem implements the REM directive end to end: parse fields,
// resolve a trigger date via the resolver, decide whether it should
// fire today, substitute its body, and enqueue it in the output
// buffer.
func (it *Interpreter) handleRem(line Line) error {
	f, err := it.parseRemLine(line)
	if err != nil {
		return err
	}
	t := f.trig

	satisfy, err := it.evalSatisfy(f.satisfyTxt, line.File, line.LineNo, &f.nonconst)
	if err != nil {
		return err
	}

	in := trigger.Input{Today: it.Clock.Today, TodayMinutes: it.Clock.TodayMinutes, CalendarMode: it.CalMode}

	tzEnter := t.TimeZone != ""
	if tzEnter {
		if err := it.TZ.Enter(t.TimeZone); err != nil {
			return err
		}
		defer it.TZ.Exit()
		in.Today, in.TodayMinutes = it.Clock.Today, it.Clock.TodayMinutes
	}

	dse, err := it.Resolver.Compute(t, in, satisfy)
	if err != nil {
		kind := errs.KindOf(err)
		if kind == errs.Expired || (kind == errs.CantTrig && t.MaybeUncomputable) {
			return nil
		}
		return err
	}

	// ADDOMIT marks the computed date omitted for every later reminder,
	// whether or not this one fires today.
	if t.AddOmit {
		if err := it.Omit.AddFull(dse); err != nil {
			return errAt(line.File, line.LineNo, errs.Generic, "%v", err)
		}
	}

	var warn func(int) (int32, error)
	if t.WarnFunc != "" {
		warn = it.warnHookFor(t.WarnFunc)
	}
	dec := trigger.Decision{IgnoreOnce: it.IgnoreOnce, FiredOnceToday: t.Once && it.OnceDate == it.Clock.Today, CalendarMode: it.CalMode}
	should, err := it.Resolver.ShouldTrigger(t, in, dec, dse, warn)
	if err != nil {
		return err
	}
	if !should {
		return nil
	}

	callSubst3, hasFn, ampm, ordinal := it.substHooks()
	ctx := subst.Context{
		Mode:            subst.Normal,
		TriggerDSE:      dse,
		Today:           it.Clock.Today,
		TimeOfDay:       t.Time.TTime,
		NowMinutes:      int(it.Clock.TodayMinutes),
		IsTodo:          t.IsTodo,
		CompleteThrough: t.CompleteThrough,
		Info:            t.Info,
		CallSubst3:      callSubst3,
		HasUserFunc:     hasFn,
		AmPmOverride:    ampm,
		OrdinalOverride: ordinal,
	}
	if f.bodyType == trigger.TypeRun {
		ctx.RemType = subst.TypeRun
	}
	if it.CalMode {
		ctx.Mode = subst.Cal
	}
	body, err := subst.Rewrite(f.body, ctx)
	if err != nil {
		return err
	}
	if ctx.Mode == subst.Normal && (f.bodyType == trigger.TypeMsg || f.bodyType == trigger.TypeMsf) {
		body = appendMsgSuffix(body, it.msgsuffix)
	}

	occ := &Occurrence{
		Tags:            t.Tags,
		Info:            t.Info,
		Type:            f.bodyType,
		Duration:        t.Time.Duration,
		Once:            t.Once,
		LineStart:       line.LineStart,
		DurationDays:    t.DurationDays,
		PassthruPayload: t.PassthruPayload,
		TDelta:          t.Time.Delta,
		TRep:            t.Time.Rep,
		IfDepth:         it.IfStack.Depth(),
		NonConst:        f.nonconst,
		ColorR:          t.ColorR,
		ColorG:          t.ColorG,
		ColorB:          t.ColorB,
	}
	// SCHED computes an alternate alert time queued/daemon mode should
	// pop up at, distinct from the AT time the body's %-escapes
	// report.
	alertTime := t.Time.TTime
	if t.SchedFunc != "" && alertTime >= 0 {
		if sched := it.warnHookFor(t.SchedFunc); sched != nil {
			if adj, err := sched(alertTime); err == nil {
				alertTime = int(adj)
			}
		}
	}
	entry := buffer.Entry{
		Date: dse, Time: alertTime, Priority: t.Priority,
		Body: strings.TrimSpace(body), File: line.File, Line: line.LineNo,
		Payload: occ,
	}
	it.Buffer.Add(entry)
	return nil
}
