// Command remind is the CLI entrypoint: it reads flags, decodes the
// optional TOML settings file, fixes "today" (possibly overridden by
// trailing positional date/time arguments or a --tz zone), drives one
// script.Interpreter run, and writes the requested output format.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
	"github.com/rs/zerolog"

	"github.com/midbel/remind/internal/buffer"
	"github.com/midbel/remind/internal/config"
	"github.com/midbel/remind/internal/logging"
	"github.com/midbel/remind/internal/script"
	"github.com/midbel/remind/internal/value"
)

const (
	Program = "remind"
	Version = "1.0.0"
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, helpText)
		os.Exit(ExitUsage)
	}
}

// options collects every flag into one struct so runOnce/runDaemon
// don't need a dozen separate parameters.
type options struct {
	calMode      bool
	simpleCal    bool
	jsonOut      bool
	cfgPath      string
	tzName       string
	onceFile     string
	ignoreOnce   bool
	onlyEvents   bool
	next         bool
	purge        bool
	unpurge      bool
	listEntries  bool
	daemon       bool
	omitHolidays string
	quiet        bool
	maxOcc       int
}

func main() {
	// set-uid/set-gid installations are refused outright
	if os.Getuid() != os.Geteuid() || os.Getgid() != os.Getegid() {
		Exit(badUsage("remind: refusing to run set-uid/set-gid"))
	}

	var opts options
	flag.BoolVar(&opts.calMode, "c", false, "calendar mode")
	flag.BoolVar(&opts.calMode, "calendar", false, "calendar mode")
	flag.BoolVar(&opts.simpleCal, "simple-cal", false, "simple-calendar text output")
	flag.BoolVar(&opts.jsonOut, "json", false, "structured JSON output")
	flag.StringVar(&opts.cfgPath, "config", "", "TOML settings file")
	flag.StringVar(&opts.tzName, "tz", "", "override host time zone for this run")
	flag.StringVar(&opts.onceFile, "once-file", "", "path to the ONCE marker file")
	flag.BoolVar(&opts.ignoreOnce, "ignore-once", false, "fire ONCE reminders even if already fired today")
	flag.BoolVar(&opts.onlyEvents, "only-events", false, "suppress occurrences not landing exactly on today")
	flag.BoolVar(&opts.next, "n", false, "print only the single earliest occurrence")
	flag.BoolVar(&opts.next, "next", false, "print only the single earliest occurrence")
	flag.BoolVar(&opts.purge, "p", false, "rewrite script, commenting out expired one-shot REMs")
	flag.BoolVar(&opts.purge, "purge", false, "rewrite script, commenting out expired one-shot REMs")
	flag.BoolVar(&opts.unpurge, "unpurge", false, "restore lines previously purged with #!P:")
	flag.BoolVar(&opts.listEntries, "list-entries", false, "dump the sorted/deduped buffer as a debug table")
	flag.BoolVar(&opts.daemon, "daemon", false, "run continuously, re-issuing reminders on a poll interval")
	flag.StringVar(&opts.omitHolidays, "omit-holidays", "", "seed the OMIT calendar from a holiday set (e.g. US)")
	flag.BoolVar(&opts.quiet, "q", false, "suppress warnings on stderr")
	flag.IntVar(&opts.maxOcc, "max", 0, "cap the number of occurrences emitted (0 = unlimited)")
	version := flag.Bool("version", false, "print version and exit")
	flag.BoolVar(version, "v", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Printf("%s %s\n", Program, Version)
		return
	}

	cfg, err := config.Load(opts.cfgPath)
	if err != nil {
		Exit(badUsage("%v", err))
	}
	if opts.tzName == "" {
		opts.tzName = cfg.TimeZone
	}

	args := flag.Args()
	scriptArg, dateArgs := splitArgs(args)
	scriptPath := config.ResolveScriptPath(cfg, scriptArg)

	hostZone := time.Local
	if opts.tzName != "" {
		if loc, err := time.LoadLocation(opts.tzName); err == nil {
			hostZone = loc
		} else {
			Exit(badUsage("unknown time zone %q: %v", opts.tzName, err))
		}
	}

	today, todayMinutes, err := resolveToday(dateArgs, hostZone)
	if err != nil {
		Exit(badUsage("%v", err))
	}

	tty := logging.IsTerminal(os.Stderr)
	log := logging.New(os.Stderr, tty && !opts.daemon)

	if opts.daemon {
		runDaemon(cfg, scriptPath, hostZone, log, opts)
		return
	}

	var runErr error
	for i := 0; i < parseRepetitions(dateArgs); i++ {
		if runErr = runOnce(cfg, scriptPath, today+int32(i), todayMinutes, hostZone, log, opts); runErr != nil {
			break
		}
	}
	Exit(runtimeErr(runErr))
}

// parseRepetitions finds a trailing "*N" token among the date-override
// arguments: the run repeats N times, one day apart.
func parseRepetitions(args []string) int {
	for _, a := range args {
		if strings.HasPrefix(a, "*") {
			if n, err := strconv.Atoi(a[1:]); err == nil && n > 1 {
				return n
			}
		}
	}
	return 1
}

// splitArgs separates the optional script path from the trailing
// date-override tokens (year month day [time] [*rep]): the first
// positional argument after options is the script path, and any
// trailing positional arguments supply a date/time override.
func splitArgs(args []string) (script string, rest []string) {
	if len(args) == 0 {
		return "", nil
	}
	if _, err := strconv.Atoi(args[0]); err == nil {
		// first token is already numeric: no script path given, whole
		// tail is a date override against the default script.
		return "", args
	}
	return args[0], args[1:]
}

// resolveToday applies a trailing date/time override onto time.Now()
// in hostZone, or just reads the wall clock if no override was given.
func resolveToday(dateArgs []string, hostZone *time.Location) (int32, int32, error) {
	now := time.Now().In(hostZone)
	if len(dateArgs) == 0 {
		dse, _ := value.YMDToDSE(now.Year(), int(now.Month()), now.Day())
		return dse, int32(now.Hour()*60 + now.Minute()), nil
	}
	y, m, d := now.Year(), int(now.Month()), now.Day()
	minutes := int32(now.Hour()*60 + now.Minute())
	if len(dateArgs) >= 3 {
		yy, err1 := strconv.Atoi(dateArgs[0])
		mm, err2 := strconv.Atoi(dateArgs[1])
		dd, err3 := strconv.Atoi(dateArgs[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return 0, 0, fmt.Errorf("bad date override %q", strings.Join(dateArgs[:3], " "))
		}
		y, m, d = yy, mm, dd
	}
	if len(dateArgs) >= 4 && !strings.HasPrefix(dateArgs[3], "*") {
		t, err := parseTimeOfDay(dateArgs[3])
		if err != nil {
			return 0, 0, err
		}
		minutes = t
	}
	dse, ok := value.YMDToDSE(y, m, d)
	if !ok {
		return 0, 0, fmt.Errorf("bad date override %04d-%02d-%02d", y, m, d)
	}
	return dse, minutes, nil
}

func parseTimeOfDay(tok string) (int32, error) {
	if strings.Contains(tok, ":") {
		parts := strings.SplitN(tok, ":", 2)
		h, err1 := strconv.Atoi(parts[0])
		m, err2 := strconv.Atoi(parts[1])
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("bad time override %q", tok)
		}
		return int32(h*60 + m), nil
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("bad time override %q", tok)
	}
	return int32((n/100)*60 + n%100), nil
}

// runOnce drives exactly one interpreter pass over scriptPath and
// writes its result, shared by the plain one-shot CLI path and each
// tick of runDaemon.
func runOnce(cfg config.Config, scriptPath string, today, todayMinutes int32, hostZone *time.Location, log zerolog.Logger, opts options) error {
	it := script.New(today, todayMinutes, hostZone, logging.WithComponent(log, "script"))
	it.CalMode = opts.calMode || opts.simpleCal
	it.IgnoreOnce = opts.ignoreOnce
	it.MaxOccurrences = opts.maxOcc
	if cfg.StringCap > 0 {
		it.StringCap = cfg.StringCap
		it.Eval.StringCap = cfg.StringCap
	}
	it.ExprTimeout = cfg.ExprTimeout.Duration

	holidayCC := opts.omitHolidays
	if holidayCC == "" {
		holidayCC = cfg.Omit.Holidays
	}
	if holidayCC != "" {
		if err := seedHolidays(it, holidayCC, cfg); err != nil {
			log.Warn().Err(err).Msg("failed to seed OMIT holidays")
		}
	}

	onceFile := opts.onceFile
	if onceFile == "" {
		onceFile = scriptPath + ".once"
	}
	if err := it.LoadOnceFile(onceFile); err != nil {
		log.Warn().Err(err).Msg("failed to load ONCE file")
	}

	if opts.purge {
		n, err := it.Purge(scriptPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s: purged %d expired reminder(s)\n", Program, n)
		return nil
	}
	if opts.unpurge {
		n, err := it.Unpurge(scriptPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%s: restored %d purged reminder(s)\n", Program, n)
		return nil
	}

	occs, err := it.Run(scriptPath)
	if err != nil {
		return err
	}

	if opts.onlyEvents {
		filtered := occs[:0]
		for _, o := range occs {
			if o.Date == today {
				filtered = append(filtered, o)
			}
		}
		occs = filtered
	}
	if opts.maxOcc > 0 && len(occs) > opts.maxOcc {
		occs = occs[:opts.maxOcc]
	}

	if !opts.quiet {
		for _, w := range it.Warnings() {
			fmt.Fprintf(os.Stderr, "%s: warning: %v\n", Program, w)
		}
	}

	if opts.listEntries {
		buffer.Dump(os.Stderr, it.Buffer.Sorted())
	}

	firedOnce := false
	for _, o := range occs {
		if o.Once {
			firedOnce = true
		}
	}
	if firedOnce && !opts.ignoreOnce {
		if err := it.SaveOnceFile(onceFile); err != nil {
			log.Warn().Err(err).Msg("failed to save ONCE file")
		}
	}

	switch {
	case opts.next:
		occ, ok := script.NextOccurrence(occs)
		if !ok {
			return nil
		}
		return script.EmitPlain(os.Stdout, []script.Occurrence{occ})
	case opts.jsonOut:
		return script.EmitJSON(os.Stdout, occs)
	case opts.simpleCal || opts.calMode:
		return script.EmitSimpleCal(os.Stdout, occs)
	default:
		return script.EmitPlain(os.Stdout, occs)
	}
}

// seedHolidays bulk-populates the OMIT calendar from a standard
// holiday set; cc is a country code, only "US" is wired to a concrete
// holiday table, any other value returns an error.
func seedHolidays(it *script.Interpreter, cc string, cfg config.Config) error {
	bc := cal.NewBusinessCalendar()
	switch strings.ToUpper(cc) {
	case "US":
		bc.AddHoliday(us.Holidays...)
	default:
		return fmt.Errorf("unsupported holiday set %q", cc)
	}
	fromYear, toYear := cfg.Omit.FromYear, cfg.Omit.ToYear
	if fromYear == 0 {
		fromYear = time.Now().Year()
	}
	if toYear == 0 {
		toYear = fromYear + 1
	}
	return it.Omit.SeedHolidays(bc, fromYear, toYear)
}
