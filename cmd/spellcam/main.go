// spellcam - fingerspelling camera client with audio feedback.
// Streams webcam frames to a recognition service, shows the live label and
// the accumulated text, and beeps and speaks each new character.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-spellcam/internal/config"
	"github.com/teslashibe/go-spellcam/internal/log"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(2)
	}

	if cfg.TUI {
		f, err := os.OpenFile("spellcam.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ Cannot open log file: %v\n", err)
			os.Exit(1)
		}
		log.InitTo(cfg.LogLevel, f)
	} else {
		log.Init(cfg.LogLevel)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	app := newApp(cfg, log.L())
	err = app.Run(ctx)
	app.Shutdown()
	if err != nil {
		log.Error("runtime error", "error", err)
		os.Exit(1)
	}
}

// loadConfig resolves defaults, the YAML file, environment and flags, in that order.
func loadConfig() (config.App, error) {
	var flags config.App

	file := flag.String("config", config.DefaultFile(), "Configuration file (YAML)")
	flag.StringVar(&flags.Server, "server", "", "Recognition service base URL")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.DurationVar(&flags.Interval, "interval", 0, "Delay between recognition cycles")
	flag.StringVar(&flags.Camera.Device, "device", "", "Camera device index or capture URL")
	flag.IntVar(&flags.Camera.Quality, "quality", 0, "JPEG quality 1-100")
	flag.StringVar(&flags.Audio.Backend, "audio", "", "Audio backend: auto, malgo, mock")
	flag.StringVar(&flags.Speech.Provider, "speech", "", "Speech provider: openai, none")
	flag.StringVar(&flags.Speech.Voice, "voice", "", "Preferred voice ID or name")
	flag.StringVar(&flags.Speech.Format, "speech-format", "", "Speech response format: pcm, opus")
	flag.StringVar(&flags.Speech.FallbackBaseURL, "speech-fallback", "", "Fallback OpenAI-compatible speech endpoint")
	flag.StringVar(&flags.Dashboard.Listen, "listen", "", "Dashboard listen address")
	noDashboard := flag.Bool("no-dashboard", false, "Disable the web dashboard")
	mirrored := flag.Bool("mirror", true, "Mirror the camera preview")
	flag.BoolVar(&flags.TUI, "tui", false, "Run the terminal display")
	flag.BoolVar(&flags.AutoActivate, "auto-activate", false, "Enable audio at startup")
	flag.Parse()

	mirrorSet := false
	flag.Visit(func(f *flag.Flag) { mirrorSet = mirrorSet || f.Name == "mirror" })

	cfg := config.Default()
	if err := cfg.LoadFile(*file, true); err != nil {
		return cfg, err
	}
	cfg.LoadEnv()
	if err := cfg.Overlay(flags); err != nil {
		return cfg, err
	}
	// Booleans that default to true cannot be overlaid as zero values.
	if mirrorSet {
		cfg.Mirrored = *mirrored
	}
	if *noDashboard {
		cfg.Dashboard.Disabled = true
	}
	return cfg, cfg.Validate()
}
