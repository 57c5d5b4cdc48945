package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"visuals/internal/logger"
	"visuals/pkg/config"
	"visuals/pkg/engine"
)

func init() {
	// GLFW requires the program to be running on the main thread
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	logLevel := flag.String("log-level", "", "Override the configured log level")
	maxTicks := flag.Uint64("max-ticks", 0, "Stop after this many frames (0 uses the config)")
	snapshot := flag.String("snapshot", "", "Stylize this image with the camera shader instead of opening a window")
	out := flag.String("out", "snapshot.png", "Output file for -snapshot")
	snapshotTime := flag.Float64("time", 0.5, "Grain clock used by -snapshot")
	flatten := flag.Bool("flatten", true, "Blend the -snapshot result over the input")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		log.Printf("No configuration at %s, using defaults", *configPath)
	}

	level := cfg.Log.Level
	if *logLevel != "" {
		level = *logLevel
	}

	var appLog *logger.Logger
	if cfg.Log.File != "" {
		appLog, err = logger.NewMultiLogger(level, cfg.Log.File)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
	} else {
		appLog = logger.NewLogger(level)
	}
	defer appLog.Close()

	if *snapshot != "" {
		if err := runSnapshot(*snapshot, *out, *cfg, *snapshotTime, *flatten); err != nil {
			appLog.Fatalf("Snapshot failed: %v", err)
		}
		appLog.Infof("Wrote %s", *out)
		return
	}

	if *maxTicks > 0 {
		cfg.Loop.MaxTicks = *maxTicks
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appLog.Info("Starting visuals...")
	eng, err := engine.NewEngine(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatalf("Failed to initialize engine: %v", err)
	}

	appLog.Info("Engine initialized, starting frame loop...")
	if err := eng.Run(ctx); err != nil {
		appLog.Fatalf("Frame loop failed: %v", err)
	}
	appLog.Infof("Rendered %d frames", eng.Frame().Ticks)
}
