package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hako/durafmt"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/midbel/remind/internal/config"
	"github.com/midbel/remind/internal/logging"
	"github.com/midbel/remind/internal/value"
)

// runDaemon runs continuously, re-issuing reminders as time advances:
// a robfig/cron/v3 scheduler fires one runOnce pass per
// cfg.Daemon.Poll interval, each tick tagged with a fresh uuid for log
// correlation, until SIGINT/SIGTERM.
func runDaemon(cfg config.Config, scriptPath string, hostZone *time.Location, log zerolog.Logger, opts options) {
	poll := cfg.Daemon.Poll.Duration
	if poll <= 0 {
		poll = 60 * time.Second
	}
	spec := fmt.Sprintf("@every %s", poll)

	sched := cron.New(cron.WithLocation(hostZone))
	tick := func() {
		runID := logging.NewRunID()
		tickLog := log.With().Str("run_id", runID).Logger()

		now := time.Now().In(hostZone)
		today, ok := value.YMDToDSE(now.Year(), int(now.Month()), now.Day())
		if !ok {
			tickLog.Error().Msg("failed to compute today's day-serial number")
			return
		}
		minutes := int32(now.Hour()*60 + now.Minute())

		if err := runOnce(cfg, scriptPath, today, minutes, hostZone, tickLog, opts); err != nil {
			tickLog.Error().Err(err).Msg("daemon tick failed")
			return
		}
		tickLog.Info().Str("next_tick_in", durafmt.Parse(poll).String()).Msg("daemon tick complete")
	}

	if _, err := sched.AddFunc(spec, tick); err != nil {
		Exit(runtimeErr(fmt.Errorf("daemon: bad poll interval %s: %w", spec, err)))
	}
	log.Info().Str("poll", poll.String()).Msg("remind daemon starting")
	sched.Start()
	defer sched.Stop()

	tick() // fire once immediately instead of waiting a full poll interval

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	log.Info().Str("signal", s.String()).Msg("remind daemon stopping")
}
