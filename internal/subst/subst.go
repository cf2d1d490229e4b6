// Package subst implements the "%"-escape substitution engine that
// expands a reminder body template against a resolved trigger
// date/time.
package subst

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hako/durafmt"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/midbel/remind/internal/value"
)

// Mode selects which rendering rules apply.
type Mode int

const (
	Normal Mode = iota
	Cal
	Advance
)

// RemType mirrors trigger.RemType's RUN distinction the quote-marker
// rule needs, without importing internal/trigger (subst only needs the
// one bit, not the whole record).
type RemType int

const (
	TypeOther RemType = iota
	TypeRun
)

// Context bundles everything a substitution pass needs to read.
type Context struct {
	Mode Mode

	TriggerDSE int32
	Today      int32
	TimeOfDay  int // minutes past midnight, or -1 if untimed
	NowMinutes int // "current time" for the relative-phrase escapes

	IsTodo          bool
	CompleteThrough int32 // -1 if unset
	RemType         RemType

	Info        map[string]string
	Translate   func(key string) (string, bool)
	CallSubst3  func(name string, altMode bool, dse int32, minute int) (value.Value, bool, error)
	HasUserFunc func(name string) bool

	// AmPmOverride backs subst_ampm(hour): if it returns ok, its string
	// replaces the built-in am/pm label for the %2 escape.
	AmPmOverride func(hour int) (string, bool)
	// OrdinalOverride backs subst_ordinal(day): if it returns ok, its
	// string replaces the built-in ordinal suffix for the %S escape.
	OrdinalOverride func(day int) (string, bool)
}

var titleCaser = cases.Title(language.English)

// Rewrite expands every "%"-escape in body against ctx: %<key> INFO
// lookups, %(text) translation lookups, %{ident} hook calls, letter
// codes, and the quote-marker post-pass.
func Rewrite(body string, ctx Context) (string, error) {
	var out strings.Builder
	runes := []rune(body)
	altNext := false
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '%' {
			out.WriteRune(r)
			continue
		}
		if i+1 >= len(runes) {
			out.WriteRune(r)
			break
		}
		next := runes[i+1]
		if next == '*' && i+2 < len(runes) {
			// "%*X": alternate mode for the escape character that follows.
			altNext = true
			i++
			next = runes[i+1]
		}
		switch {
		case next == '*':
			altNext = true
			i++
			continue
		case next == '"':
			out.WriteRune('\x11') // internal quote-marker sentinel
			i++
			continue
		case next == '<':
			end := indexRune(runes, i+2, '>')
			if end < 0 {
				out.WriteRune(r)
				continue
			}
			key := string(runes[i+2 : end])
			out.WriteString(ctx.Info[key])
			i = end
			continue
		case next == '(':
			end := indexRune(runes, i+2, ')')
			if end < 0 {
				out.WriteRune(r)
				continue
			}
			key := string(runes[i+2 : end])
			if ctx.Translate != nil {
				if tr, ok := ctx.Translate(key); ok {
					out.WriteString(tr)
					i = end
					continue
				}
			}
			out.WriteString(key)
			i = end
			continue
		case next == '{':
			end := indexRune(runes, i+2, '}')
			if end < 0 {
				out.WriteRune(r)
				continue
			}
			ident := string(runes[i+2 : end])
			s, err := callSubst3Hook(ctx, "subst_"+strings.ToLower(ident), altNext)
			altNext = false
			if err != nil {
				return "", err
			}
			out.WriteString(s)
			i = end
			continue
		default:
			alt := altNext
			s, handled, usedShortcut, err := expandLetterWithOverride(ctx, next, alt)
			altNext = false
			if err != nil {
				return "", err
			}
			if !handled {
				// Not a recognised letter code: pass the escape through
				// literally (the INFO map is addressed via %<key>, not a
				// bare single letter).
				out.WriteRune('%')
				out.WriteRune(next)
				i++
				continue
			}
			if s == "" && !usedShortcut {
				if post, ok := postOverride(ctx, next, alt); ok {
					s = post
				}
			}
			if next >= 'A' && next <= 'Z' && s != "" {
				s = titleCaser.String(s[:1]) + s[1:]
			}
			out.WriteString(s)
			i++
		}
	}
	return stripQuoteMarkers(out.String(), ctx), nil
}

func indexRune(runes []rune, from int, target rune) int {
	for i := from; i < len(runes); i++ {
		if runes[i] == target {
			return i
		}
	}
	return -1
}

// callSubst3Hook dispatches the %{ident} user-function hook, arity 3.
func callSubst3Hook(ctx Context, name string, altMode bool) (string, error) {
	if ctx.CallSubst3 == nil || ctx.HasUserFunc == nil || !ctx.HasUserFunc(name) {
		return "", nil
	}
	v, _, err := ctx.CallSubst3(name, altMode, ctx.TriggerDSE, ctx.TimeOfDay)
	if err != nil {
		return "", err
	}
	sv, err := value.Coerce(v, value.Str, value.DefaultStringCap)
	if err != nil {
		return "", nil
	}
	return sv.Str(), nil
}

// stripQuoteMarkers implements the %" quote-marker post-pass: in Cal
// mode only the text between the first pair survives; in Normal mode
// the markers are stripped; with no markers in Cal/Advance+RUN, the
// whole output is dropped.
func stripQuoteMarkers(s string, ctx Context) string {
	const marker = '\x11'
	first := strings.IndexRune(s, marker)
	if first < 0 {
		if (ctx.Mode == Cal || ctx.Mode == Advance) && ctx.RemType == TypeRun {
			return ""
		}
		return s
	}
	rest := s[first+len(string(marker)):]
	second := strings.IndexRune(rest, marker)
	if ctx.Mode == Cal {
		if second < 0 {
			return rest
		}
		return rest[:second]
	}
	out := s[:first] + rest
	if second >= 0 {
		out = s[:first] + rest[:second] + rest[second+len(string(marker)):]
	}
	return strings.ReplaceAll(out, string(marker), "")
}

func diffDays(trigger, today int32) int { return int(trigger - today) }

func pluralOf(diff int) string {
	if diff == 1 {
		return ""
	}
	return "s"
}

func possessiveOf(diff int) string {
	if diff == 1 {
		return "'s"
	}
	return "s'"
}

// expandLetterWithOverride wraps expandLetter with the per-letter
// subst_<letter> hook (arity 3, "altmode, 'YYYY-MM-DD', HH:MM"): if
// such a user function exists and returns truthy, its stringified
// result replaces the built-in letter code entirely; a falsy (zero)
// result falls through to the built-in below.
func expandLetterWithOverride(ctx Context, c rune, altMode bool) (string, bool, bool, error) {
	lower := c
	if c >= 'A' && c <= 'Z' {
		lower = c + 32
	}
	if ctx.CallSubst3 != nil && ctx.HasUserFunc != nil {
		name := "subst_" + string(lower)
		if ctx.HasUserFunc(name) {
			v, found, err := ctx.CallSubst3(name, altMode, ctx.TriggerDSE, ctx.TimeOfDay)
			if err != nil {
				return "", true, false, err
			}
			if found && value.Truthy(v) {
				sv, err := value.Coerce(v, value.Str, value.DefaultStringCap)
				if err != nil {
					return "", true, false, err
				}
				return sv.Str(), true, true, nil
			}
		}
	}
	return expandLetter(ctx, c, altMode)
}

// postOverride backs the "after built-in" subst_<letter>x namespace,
// tried only when the built-in produced no output and the
// today/tomorrow/yesterday shortcut did not apply.
func postOverride(ctx Context, c rune, altMode bool) (string, bool) {
	if ctx.CallSubst3 == nil || ctx.HasUserFunc == nil {
		return "", false
	}
	lower := c
	if c >= 'A' && c <= 'Z' {
		lower = c + 32
	}
	name := "subst_" + string(lower) + "x"
	if !ctx.HasUserFunc(name) {
		return "", false
	}
	v, found, err := ctx.CallSubst3(name, altMode, ctx.TriggerDSE, ctx.TimeOfDay)
	if err != nil || !found || !value.Truthy(v) {
		return "", false
	}
	sv, err := value.Coerce(v, value.Str, value.DefaultStringCap)
	if err != nil {
		return "", false
	}
	return sv.Str(), true
}

// expandLetter implements the per-letter semantic codes (uppercased
// lookup; caller applies capitalization mirroring based on the
// escape's own case). Returns handled=false for characters with no letter-code
// meaning, letting Rewrite pass the escape through literally; usedShortcut
// reports whether the today/tomorrow/yesterday shortcut fired, which
// suppresses the post-override namespace.
func expandLetter(ctx Context, c rune, altMode bool) (string, bool, bool, error) {
	diff := diffDays(ctx.TriggerDSE, ctx.Today)
	y, m, d := value.DSEToYMD(ctx.TriggerDSE)
	weekday := value.Weekday(ctx.TriggerDSE)
	plu := pluralOf(diff)

	upper := c
	if c >= 'a' && c <= 'z' {
		upper = c - 32
	}

	if shortcut, ok := todayTomorrowYesterday(upper, diff); ok {
		return shortcut, true, true, nil
	}

	switch upper {
	case 'A':
		return withOn(altMode, fmt.Sprintf("%s, %d %s, %d", dayName(weekday), d, monthName(m), y)), true, false, nil
	case 'B':
		if diff > 0 {
			return fmt.Sprintf("in %d day%s' time", diff, pluralOf(diff)), true, false, nil
		}
		return fmt.Sprintf("%d day%s ago", -diff, pluralOf(-diff)), true, false, nil
	case 'C':
		return withOn(altMode, dayName(weekday)), true, false, nil
	case 'D':
		return strconv.Itoa(d), true, false, nil
	case 'E':
		return withOn(altMode, fmt.Sprintf("%02d/%02d/%04d", d, m, y)), true, false, nil
	case 'F':
		return withOn(altMode, fmt.Sprintf("%02d/%02d/%04d", m, d, y)), true, false, nil
	case 'G':
		return withOn(altMode, fmt.Sprintf("%s, %d %s", dayName(weekday), d, monthName(m))), true, false, nil
	case 'H':
		return withOn(altMode, fmt.Sprintf("%02d/%02d", d, m)), true, false, nil
	case 'I':
		return withOn(altMode, fmt.Sprintf("%02d/%02d", m, d)), true, false, nil
	case 'J':
		return withOn(altMode, fmt.Sprintf("%s, %s %d%s, %d", dayName(weekday), monthName(m), d, plu, y)), true, false, nil
	case 'K':
		return withOn(altMode, fmt.Sprintf("%s, %s %d%s", dayName(weekday), monthName(m), d, plu)), true, false, nil
	case 'L':
		return withOn(altMode, fmt.Sprintf("%04d/%02d/%02d", y, m, d)), true, false, nil
	case 'M':
		return monthName(m), true, false, nil
	case 'N':
		return strconv.Itoa(m), true, false, nil
	case 'O':
		if ctx.Today == ctx.TriggerDSE {
			return " (today)", true, false, nil
		}
		return "", true, false, nil
	case 'P':
		return plu, true, false, nil
	case 'Q':
		return possessiveOf(diff), true, false, nil
	case 'R':
		return fmt.Sprintf("%02d", d), true, false, nil
	case 'S':
		if ctx.OrdinalOverride != nil {
			if s, ok := ctx.OrdinalOverride(d); ok {
				return s, true, false, nil
			}
		}
		return ordinalSuffix(d), true, false, nil
	case 'T':
		return fmt.Sprintf("%02d", m), true, false, nil
	case 'U':
		return withOn(altMode, fmt.Sprintf("%s, %d%s %s, %d", dayName(weekday), d, plu, monthName(m), y)), true, false, nil
	case 'V':
		return withOn(altMode, fmt.Sprintf("%s, %d%s %s", dayName(weekday), d, plu, monthName(m))), true, false, nil
	case 'W':
		return dayName(weekday), true, false, nil
	case 'X':
		return strconv.Itoa(diff), true, false, nil
	case 'Y':
		return strconv.Itoa(y), true, false, nil
	case 'Z':
		return strconv.Itoa(y % 100), true, false, nil
	case ':':
		if ctx.IsTodo && ctx.CompleteThrough >= 0 && ctx.CompleteThrough >= ctx.TriggerDSE {
			return " (done)", true, false, nil
		}
		return "", true, false, nil
	case '_':
		return "\n", true, false, nil
	case '2':
		return withAt(altMode, hourMinute12WithOverride(ctx, ctx.TimeOfDay)), true, false, nil
	case '3':
		return withAt(altMode, hourMinute24(ctx.TimeOfDay)), true, false, nil
	case '1', '4', '5', '6', '7', '8', '9', '0':
		return relativeTimePhrase(ctx, upper), true, false, nil
	case '!', '?':
		if diff == 0 {
			if c == '!' {
				return "is", true, false, nil
			}
			return "was", true, false, nil
		}
		return "", true, false, nil
	}
	return "", false, false, nil
}

func todayTomorrowYesterday(upper rune, diff int) (string, bool) {
	if diff < -1 || diff > 1 {
		return "", false
	}
	switch upper {
	case 'A', 'B', 'C', 'E', 'F', 'G', 'H', 'I', 'J', 'K', 'L', 'U', 'V':
		switch diff {
		case 1:
			return "tomorrow", true
		case -1:
			return "yesterday", true
		default:
			return "today", true
		}
	}
	return "", false
}

func withOn(altMode bool, s string) string {
	if altMode {
		return s
	}
	return "on " + s
}

func withAt(altMode bool, s string) string {
	if altMode {
		return s
	}
	return "at " + s
}

func hourMinute24(minutes int) string {
	if minutes < 0 {
		return ""
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func hourMinute12(minutes int) string {
	if minutes < 0 {
		return ""
	}
	h, m := minutes/60, minutes%60
	suffix := "am"
	if h >= 12 {
		suffix = "pm"
	}
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	return fmt.Sprintf("%d:%02d%s", h12, m, suffix)
}

// hourMinute12WithOverride backs the %2 escape's subst_ampm(hour) hook:
// if it returns ok, its string replaces the built-in am/pm label.
func hourMinute12WithOverride(ctx Context, minutes int) string {
	if minutes < 0 {
		return ""
	}
	if ctx.AmPmOverride == nil {
		return hourMinute12(minutes)
	}
	h, m := minutes/60, minutes%60
	h12 := h % 12
	if h12 == 0 {
		h12 = 12
	}
	suffix, ok := ctx.AmPmOverride(h)
	if !ok {
		return hourMinute12(minutes)
	}
	return fmt.Sprintf("%d:%02d%s", h12, m, suffix)
}

// relativeTimePhrase covers %1/%4/%5/%6/%7/%8/%9/%0, the "N
// hours/minutes from now" family, wired to durafmt for the %1
// human phrase.
func relativeTimePhrase(ctx Context, code rune) string {
	if ctx.TimeOfDay < 0 {
		return ""
	}
	total := ctx.TriggerDSE*int32(value.MinutesPerDay) + int32(ctx.TimeOfDay) -
		(ctx.Today*int32(value.MinutesPerDay) + int32(ctx.NowMinutes))
	adiff := int(total)
	if adiff < 0 {
		adiff = -adiff
	}
	hdiff := adiff / 60
	mdiff := adiff % 60
	when := "from now"
	if total < 0 {
		when = "ago"
	}
	switch code {
	case '1':
		if total == 0 {
			return "now"
		}
		d := durafmt.Parse(absDuration(total))
		return d.String() + " " + when
	case '4':
		return strconv.Itoa(int(total))
	case '5':
		return strconv.Itoa(adiff)
	case '6':
		return when
	case '7':
		return strconv.Itoa(hdiff)
	case '8':
		return strconv.Itoa(mdiff)
	case '9':
		return pluralOf(mdiff)
	case '0':
		return pluralOf(hdiff)
	}
	return ""
}

func absDuration(totalMinutes int32) time.Duration {
	if totalMinutes < 0 {
		totalMinutes = -totalMinutes
	}
	return time.Duration(totalMinutes) * time.Minute
}

func ordinalSuffix(d int) string {
	switch {
	case d%100 >= 11 && d%100 <= 13:
		return "th"
	case d%10 == 1:
		return "st"
	case d%10 == 2:
		return "nd"
	case d%10 == 3:
		return "rd"
	default:
		return "th"
	}
}

func dayName(weekday int) string {
	names := [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
	return names[weekday]
}

func monthName(month int) string {
	names := [13]string{"", "January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"}
	return names[month]
}
