package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	flag "github.com/spf13/pflag"

	"github.com/lanikai/alohaplay"
	"github.com/lanikai/alohaplay/internal/logging"
	"github.com/lanikai/alohaplay/internal/viewer"
)

var log = logging.DefaultLogger.WithTag("main")

const stopTimeout = 2 * time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "pack" {
		if err := pack(os.Args[2:]); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}
	if flagInput == "" {
		log.Fatalf("No input given. See alohaplay --help")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	reg := prometheus.NewRegistry()
	v := viewer.New(viewer.Config{
		Quality:  flagQuality,
		MaxConns: flagMaxClients,
		Metrics:  reg,
	})
	cfg.Deliver = v.Publish

	p, err := alohaplay.NewPlayer(cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	reg.MustRegister(
		p.Collector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := net.Listen("tcp", flagListen)
	if err != nil {
		log.Fatalf("%v", err)
	}
	go func() {
		if err := v.Serve(ctx, l); err != nil {
			log.Error("Viewer: %v", err)
		}
	}()

	if err := play(ctx, p); err != nil {
		log.Fatalf("%v", err)
	}
}

// play runs sessions until the source ends (or forever, with --loop), or ctx
// is cancelled.
func play(ctx context.Context, p *alohaplay.Player) error {
	for {
		src, err := alohaplay.OpenSource(flagInput)
		if err != nil {
			return err
		}
		if err := p.Start(src); err != nil {
			src.Close()
			return err
		}

		err = p.Wait(ctx)
		if ctx.Err() != nil {
			log.Info("Interrupted, stopping playback")
			return p.StopWait(stopTimeout)
		}
		if err != nil {
			return err
		}

		stats := p.Stats()
		log.Info("Played %s: %d frames delivered, %d truncated, %d undecodable",
			src.Name(), stats.FramesDelivered, stats.FramesTruncated, stats.DecodeErrors)
		if !flagLoop {
			return nil
		}
	}
}

// loadConfig merges the config file, if any, with the command line. Flags
// given explicitly win; otherwise flag defaults only fill in unset values.
func loadConfig() (alohaplay.Config, error) {
	var cfg alohaplay.Config
	if flagConfig != "" {
		var err error
		if cfg, err = alohaplay.LoadConfig(flagConfig); err != nil {
			return cfg, err
		}
	}

	set := func(name string, unset bool, apply func()) {
		if unset || flag.CommandLine.Changed(name) {
			apply()
		}
	}
	set("width", cfg.Width == 0, func() { cfg.Width = flagWidth })
	set("height", cfg.Height == 0, func() { cfg.Height = flagHeight })
	set("slot-size", cfg.SlotSize == 0, func() { cfg.SlotSize = flagSlotSize })
	set("slots", cfg.Slots == 0, func() { cfg.Slots = flagSlots })
	set("frame-rate", cfg.FrameRate == 0, func() { cfg.FrameRate = flagFrameRate })
	set("carry", !cfg.Carry, func() { cfg.Carry = flagCarry })
	set("max-carry", cfg.MaxCarry == 0, func() { cfg.MaxCarry = flagMaxCarry })
	set("scale", cfg.Scale == "", func() { cfg.Scale = flagScale })
	set("cache-size", cfg.CacheSize == 0, func() { cfg.CacheSize = flagCacheSize })

	return cfg, cfg.Validate()
}
