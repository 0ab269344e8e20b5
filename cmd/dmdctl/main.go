// Command dmdctl drives a ZeDMD board over USB-serial or WiFi.
//
//	dmdctl [flags] clear
//	dmdctl [flags] color RRGGBB
//	dmdctl [flags] palette RRGGBB RRGGBB ...
//	dmdctl [flags] brightness N
//	dmdctl [flags] rgb-order N
//	dmdctl [flags] wifi
//	dmdctl [flags] test rgb_channels|gray_ramp|row_sweep|column_sweep
//	dmdctl [flags] draw image.png
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/dmdlink/internal/config"
	"github.com/coreman2200/dmdlink/internal/dmd"
	"github.com/coreman2200/dmdlink/internal/pattern"
	"github.com/coreman2200/dmdlink/internal/zedmd"
)

func main() {
	os.Exit(realMain())
}

// realMain returns the exit code so deferred cleanup runs before os.Exit.
func realMain() int {
	var (
		configPath = flag.String("config", "dmdlink.yaml", "path to config yaml")
		transport  = flag.String("transport", "serial", "link: serial | network")
		port       = flag.String("port", "", "serial device; empty probes")
		baud       = flag.Int("baud", 921600, "serial speed")
		netHost    = flag.String("host", "", "board address for the network link")
		netPort    = flag.Int("net-port", 3333, "board port for the network link")
		model      = flag.String("model", "zedmd", "panel: zedmd | zedmd-hd")
		brightness = flag.Int("brightness", -1, "brightness 0..15 applied on connect")
		rgbOrder   = flag.Int("rgb-order", -1, "rgb order 0..5 applied on connect")
		debug      = flag.Bool("debug", false, "enable board debug output")
		delayMs    = flag.Int("delay-ms", 33, "delay between test frames")
		bits       = flag.Int("bits", 24, "test pattern bit length: 2, 4 or 24")
		logLevel   = flag.String("log-level", "info", "zerolog level")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	cfg := config.Default()
	if c, err := config.Load(*configPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
		}
	} else {
		cfg = *c
	}

	// Flags given on the command line win over the file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "transport":
			cfg.Transport = *transport
		case "port":
			cfg.Serial.Port = *port
		case "baud":
			cfg.Serial.Baud = *baud
		case "host":
			cfg.Network.Host = *netHost
			cfg.Transport = "network"
		case "net-port":
			cfg.Network.Port = *netPort
		case "model":
			cfg.Model = *model
		case "brightness":
			cfg.Brightness = *brightness
		case "rgb-order":
			cfg.RGBOrder = *rgbOrder
		case "debug":
			cfg.Debug = *debug
		case "delay-ms":
			cfg.DelayMs = *delayMs
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return 2
	}

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: dmdctl [flags] clear|color|palette|brightness|rgb-order|wifi|test|draw ...")
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d := zedmd.New(cfg.Device())
	if err := d.Connect(ctx); err != nil {
		log.Error().Err(err).Msg("connect failed")
		return 1
	}
	defer func() {
		if _, err := d.Dispose(); err != nil {
			log.Warn().Err(err).Msg("dispose")
		}
		_ = d.Close()
	}()

	if err := run(ctx, d, cfg, *bits, args); err != nil {
		log.Error().Err(err).Str("cmd", args[0]).Msg("command failed")
		return 1
	}
	log.Info().Str("cmd", args[0]).Msg("done")
	return 0
}

func run(ctx context.Context, d *zedmd.Device, cfg config.Config, bits int, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "clear":
		_, err := d.ClearDisplay()
		return err

	case "color":
		if len(rest) != 1 {
			return errors.New("color takes one RRGGBB value")
		}
		c, err := parseColor(rest[0])
		if err != nil {
			return err
		}
		_, err = d.SetColor(c)
		return err

	case "palette":
		if len(rest) == 0 {
			return errors.New("palette takes one or more RRGGBB values")
		}
		colors := make([]dmd.Color, 0, len(rest))
		for _, s := range rest {
			c, err := parseColor(s)
			if err != nil {
				return err
			}
			colors = append(colors, c)
		}
		_, err := d.SetPalette(colors)
		return err

	case "brightness", "rgb-order":
		if len(rest) != 1 {
			return fmt.Errorf("%s takes one value", cmd)
		}
		v, err := strconv.Atoi(rest[0])
		if err != nil {
			return err
		}
		if cmd == "brightness" {
			_, err = d.SetBrightness(v)
		} else {
			_, err = d.SetRGBOrder(v)
		}
		return err

	case "wifi":
		if cfg.WiFi.SSID == "" {
			return errors.New("wifi.ssid is not set in the config")
		}
		_, err := d.ConfigureWiFi(zedmd.WiFi{SSID: cfg.WiFi.SSID, Password: cfg.WiFi.Password, Port: cfg.WiFi.Port})
		return err

	case "test":
		if len(rest) != 1 {
			return errors.New("test takes a pattern kind")
		}
		kind, err := pattern.ParseKind(rest[0])
		if err != nil {
			return err
		}
		return runPattern(ctx, d, pattern.NewRunner(pattern.Plan{Kind: kind, Dim: d.FixedSize(), BitLength: bits}))

	case "draw":
		if len(rest) != 1 {
			return errors.New("draw takes an image path")
		}
		f, err := os.Open(rest[0])
		if err != nil {
			return err
		}
		defer f.Close()
		img, _, err := image.Decode(f)
		if err != nil {
			return err
		}
		if err := d.Draw(d.Bounds(), img, img.Bounds().Min); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	}
	return fmt.Errorf("unknown command %q", cmd)
}

// runPattern paces the runner by the configured delay until it completes or
// ctx is cancelled.
func runPattern(ctx context.Context, d *zedmd.Device, r *pattern.Runner) error {
	delay := d.Config().Delay
	if delay <= 0 {
		delay = 33 * time.Millisecond
	}
	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		f, ok := r.Next()
		if !ok {
			return nil
		}
		if _, err := d.Render(f); err != nil {
			return err
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			log.Info().Msg("pattern interrupted")
			return nil
		}
	}
}

func parseColor(s string) (dmd.Color, error) {
	if s != "" && s[0] != '#' {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return dmd.Color{}, err
	}
	r, g, b := c.RGB255()
	return dmd.Color{R: r, G: g, B: b}, nil
}
