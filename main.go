package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"lecnote/internal/config"
	"lecnote/internal/logger"
	"lecnote/internal/relay"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
)

//go:embed all:frontend/dist
var assets embed.FS

// Command line flags
var (
	pdfFlag    = flag.String("pdf", "", "PDF file to open on startup")
	relayFlag  = flag.Bool("relay", false, "Run the translation relay instead of the GUI")
	configFlag = flag.String("config", "", "Config file path (default ~/.config/lecnote/lecnote-config.json)")
)

// printHelp displays the help information for command line usage.
func printHelp() {
	fmt.Println("lecnote - lecture notes with live transcription and translation")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  lecnote [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --pdf <PATH>       open a lecture PDF on startup")
	fmt.Println("  --relay            run the translation relay (POST /translate) and exit on Ctrl+C")
	fmt.Println("  --config <PATH>    use a specific config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Printf("  %s, %s   Papago credentials for the relay\n", config.EnvPapagoClientID, config.EnvPapagoClientSecret)
	fmt.Printf("  %s                             relay port (default 5000)\n", config.EnvPort)
}

func main() {
	flag.Usage = printHelp
	flag.Parse()

	configMgr, err := config.NewConfigManager(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := configMgr.Load(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	// The relay logs to the console too; the GUI only to its log file.
	if err := logger.Init(configMgr.LoggerConfig(*relayFlag)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to open log file: %v\n", err)
	}
	defer logger.Close()

	if *relayFlag {
		code := runRelay(configMgr)
		logger.Close()
		os.Exit(code)
	}
	runGUI(configMgr.GetConfigPath(), *pdfFlag)
}

// runRelay serves the translation relay until interrupted.
func runRelay(configMgr *config.ConfigManager) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := relay.NewFromConfig(ctx, configMgr.GetConfig())
	if err != nil {
		logger.Error("failed to configure relay", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if err := srv.Run(ctx); err != nil {
		logger.Error("relay stopped", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func runGUI(configPath, preload string) {
	app, err := NewAppWithConfig(configPath)
	if err != nil {
		logger.Error("failed to create app", err)
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	app.SetWailsRuntime(true)

	startupFunc := func(ctx context.Context) {
		app.startup(ctx)
		if preload != "" {
			go func() {
				if _, err := app.OpenPDF(preload); err != nil {
					fmt.Fprintf(os.Stderr, "failed to open %s: %v\n", preload, err)
				}
			}()
		}
	}

	err = wails.Run(&options.App{
		Title:  "lecnote",
		Width:  1280,
		Height: 860,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 255, G: 255, B: 255, A: 1},
		OnStartup:        startupFunc,
		OnShutdown:       app.shutdown,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		logger.Error("wails run failed", err)
	}
}
