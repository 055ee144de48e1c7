// Command galileosky-gateway runs the TCP ingestion server: it accepts
// Galileosky terminal connections, decodes Mercury 230 meter readings
// relayed inside them, and pushes the resulting records to the
// configured sinks.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/galileosky/mercury-gateway/internal/config"
	"github.com/galileosky/mercury-gateway/internal/maintenance"
	"github.com/galileosky/mercury-gateway/internal/metrics"
	"github.com/galileosky/mercury-gateway/internal/session"
	"github.com/galileosky/mercury-gateway/internal/sink"
	"github.com/galileosky/mercury-gateway/pkg/log"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env-style overlay file")
	jsonConfig := flag.String("config", "", "path to an optional JSON config file")
	logLevel := flag.String("loglevel", "info", "debug, info, warn or err")
	logDate := flag.Bool("logdate", false, "include date/time in log output")
	flag.Parse()

	log.SetLevel(*logLevel)
	log.SetLogDateTime(*logDate)

	cfg := config.Load(*envFile, *jsonConfig)
	if cfg.Debug {
		log.SetLevel("debug")
	}

	sinks, jsonl, avro, err := buildSinks(cfg)
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}

	exporter := metrics.New()
	stats := &maintenance.Stats{}

	flushInterval, err := time.ParseDuration(cfg.FlushInterval)
	if err != nil {
		log.Fatalf("gateway: invalid maintenance_flush_interval %q: %v", cfg.FlushInterval, err)
	}
	statsInterval, err := time.ParseDuration(cfg.StatsInterval)
	if err != nil {
		log.Fatalf("gateway: invalid maintenance_stats_interval %q: %v", cfg.StatsInterval, err)
	}
	var avroInterval time.Duration
	if cfg.Avro.Enabled && cfg.Avro.RotateInterval != "" {
		avroInterval, err = time.ParseDuration(cfg.Avro.RotateInterval)
		if err != nil {
			log.Fatalf("gateway: invalid sink_avro.rotate-interval %q: %v", cfg.Avro.RotateInterval, err)
		}
	}

	var avroFlusher maintenance.Flusher
	if avro != nil {
		avroFlusher = avro
	}
	scheduler, err := maintenance.New(stats, flushInterval, statsInterval, jsonl, avroFlusher, avroInterval)
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}
	scheduler.Start()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := exporter.Serve(ctx, cfg.MetricsAddr); err != nil {
			log.Warnf("gateway: metrics server: %v", err)
		}
	}()

	listener := &session.Listener{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Timeout: time.Duration(cfg.Timeout) * time.Second,
		Sinks:   sinks,
		Metrics: exporter,
		Stats:   stats,
	}

	notifySystemdReady()

	if err := listener.Run(ctx); err != nil {
		log.Fatalf("gateway: %v", err)
	}

	log.Info("gateway: shutting down")
	if err := scheduler.Shutdown(); err != nil {
		log.Warnf("gateway: scheduler shutdown: %v", err)
	}
	for _, sk := range sinks {
		if err := sk.Close(); err != nil {
			log.Warnf("gateway: closing sink: %v", err)
		}
	}
}

func buildSinks(cfg config.Config) (sinks []sink.Sink, jsonl *sink.JSONLines, avro *sink.Avro, err error) {
	jsonl, err = sink.NewJSONLines(cfg.JSONLPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("building jsonl sink: %w", err)
	}
	sinks = append(sinks, jsonl)

	if cfg.NATS.Address != "" {
		natsSink, err := sink.NewNATS(sink.NATSConfig{
			Address:       cfg.NATS.Address,
			Subject:       cfg.NATS.Subject,
			Username:      cfg.NATS.Username,
			Password:      cfg.NATS.Password,
			CredsFilePath: cfg.NATS.CredsFilePath,
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("building nats sink: %w", err)
		}
		sinks = append(sinks, natsSink)
	}

	if cfg.Avro.Enabled {
		avro, err = sink.NewAvro(cfg.Avro.Dir)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("building avro sink: %w", err)
		}
		sinks = append(sinks, avro)
	}

	return sinks, jsonl, avro, nil
}

// notifySystemdReady tells systemd (if NOTIFY_SOCKET is set) that
// startup has completed. Absent systemd supervision this is a no-op.
func notifySystemdReady() {
	if os.Getenv("NOTIFY_SOCKET") == "" {
		return
	}
	cmd := exec.Command("systemd-notify", "--pid="+fmt.Sprint(os.Getpid()), "--ready")
	_ = cmd.Run()
}
