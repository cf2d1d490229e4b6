package main

const helpText = `remind - a recurring reminder/event/to-do scripting language interpreter

Usage: remind [options] [script] [year month day [time] [*rep]]

If script is omitted, DOTREMINDERS or $HOME/.reminders is used.
Trailing positional arguments override "today" for the run (for
testing fixtures and batch re-issuing of past/future dates); time is
an HH:MM or HHMM token, *rep repeats the run N times one day apart.

Options:

  -c, --calendar          calendar-mode output (entries grouped by date)
      --simple-cal        simple-calendar text output (implies -c)
      --json              structured JSON output, one array of occurrences
      --config FILE       TOML settings file
      --tz NAME           override host time zone for this run
      --once-file FILE    path to the ONCE marker file (default: beside script)
      --ignore-once       fire ONCE reminders even if already fired today
      --only-events       suppress occurrences not landing exactly on today
  -n, --next              print only the single earliest occurrence
  -p, --purge             rewrite script, commenting out expired one-shot REMs
      --unpurge           restore lines previously purged with "#!P:"
      --list-entries      dump the sorted/deduped buffer as a debug table
      --daemon            run continuously, re-issuing reminders on a poll interval
      --omit-holidays CC  seed the OMIT calendar from rickar/cal's CC holiday set
  -q                      suppress warnings on stderr
  -v, --version           print version and exit
  -h, --help              show this message

Exit status is 0 on success, 2 on a usage error, 1 on a script-level
runtime error.
`
