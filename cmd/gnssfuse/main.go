package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gnssfuse/internal/config"
	"gnssfuse/internal/gps"
)

func main() {
	var configPath, summaryPath string
	flag.StringVar(&configPath, "config", "./gnssfuse.yaml", "Path to YAML config")
	flag.StringVar(&summaryPath, "summary", "", "Print a summary of an NMEA capture file and exit")
	flag.Parse()

	if summaryPath != "" {
		fcfg := gps.DefaultFusionConfig()
		if _, err := os.Stat(configPath); err == nil {
			cfg, err := config.Load(configPath)
			if err != nil {
				log.Fatalf("config load failed: %v", err)
			}
			fcfg = fusionConfig(cfg)
		} else if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("config stat failed: %v", err)
		}
		if err := printCaptureSummary(os.Stdout, summaryPath, fcfg); err != nil {
			log.Fatalf("summary failed: %v", err)
		}
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc := gps.New(serviceConfig(cfg))
	if err := svc.Start(ctx); err != nil {
		log.Fatalf("gps start failed: %v", err)
	}
	defer svc.Close()

	log.Printf("gnssfuse starting")
	log.Printf("report interval=%s stale_after=%s weighting=%s emit_gga=%t",
		cfg.Report.Interval, cfg.Report.StaleAfter, cfg.Fusion.Weighting, cfg.Report.EmitGGA)

	rep := newReporter(cfg, os.Stdout)
	ticker := time.NewTicker(cfg.Report.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("gnssfuse stopping")
			return
		case <-svc.Done():
			rep.report(time.Now().UTC(), svc.Status())
			log.Printf("gps source ended; gnssfuse stopping")
			return
		case now := <-ticker.C:
			rep.report(now.UTC(), svc.Status())
		}
	}
}
