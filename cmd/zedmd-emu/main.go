// Command zedmd-emu runs a virtual ZeDMD board that dmdctl can reach over the
// network link.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/dmdlink/internal/config"
	"github.com/coreman2200/dmdlink/internal/dmd"
	"github.com/coreman2200/dmdlink/internal/emulator"
	"github.com/coreman2200/dmdlink/internal/zedmd"
)

func main() {
	var (
		configPath = flag.String("config", "dmdlink.yaml", "path to config yaml")
		addr       = flag.String("addr", ":3333", "HTTP listen address")
		model      = flag.String("model", "zedmd", "panel: zedmd | zedmd-hd")
		settings   = flag.String("settings", "", "where SaveSettings persists board settings")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	ec := config.Default().Emulator
	if c, err := config.Load(*configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
		}
	} else {
		ec = c.Emulator
		if lvl, err := zerolog.ParseLevel(c.LogLevel); err == nil {
			zerolog.SetGlobalLevel(lvl)
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			ec.Addr = *addr
		case "model":
			ec.Model = *model
		case "settings":
			ec.SettingsPath = *settings
		}
	})

	state := emulator.NewState(zedmd.Model(ec.Model))
	state.SettingsPath = ec.SettingsPath
	if err := state.LoadSettings(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", ec.SettingsPath).Msg("saved settings unreadable")
	}
	state.OnFrame = func(f dmd.Frame) {
		log.Trace().Stringer("frame", f).Msg("frame")
	}

	srv := &http.Server{
		Addr:         ec.Addr,
		Handler:      state.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info().Str("addr", ec.Addr).Str("model", ec.Model).Msg("emulator listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server crashed")
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	s := <-ch
	log.Info().Str("signal", s.String()).Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
