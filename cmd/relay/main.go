// Translation relay: POST /translate forwarded to Papago or an OpenAI model.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lecnote/internal/config"
	"lecnote/internal/logger"
	"lecnote/internal/relay"
)

func main() {
	configPath := flag.String("config", "", "Config file path")
	addr := flag.String("addr", "", "Listen address, overrides relay_addr and PORT")
	mdns := flag.Bool("mdns", false, "Advertise the relay on the local network")
	flag.Parse()

	configMgr, err := config.NewConfigManager(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := configMgr.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}
	cfg := configMgr.GetConfig()
	if *addr != "" {
		cfg.RelayAddr = *addr
	}
	if *mdns {
		cfg.MDNSEnabled = true
	}

	if err := logger.Init(configMgr.LoggerConfig(true)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open log file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	srv, err := relay.NewFromConfig(ctx, cfg)
	if err == nil {
		fmt.Printf("relay listening on %s (provider %s)\n", cfg.RelayAddr, cfg.Provider)
		err = srv.Run(ctx)
	}
	stop()
	logger.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
