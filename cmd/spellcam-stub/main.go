// spellcam-stub - development recognition service.
// Serves the recognition protocol with a scripted classifier so the client
// can be exercised without a model.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/go-spellcam/internal/log"
	"github.com/teslashibe/go-spellcam/pkg/recognition/stub"
)

func main() {
	addr := flag.String("listen", ":5000", "Listen address")
	script := flag.String("script", stub.DefaultScript, "Comma-separated labels to replay")
	every := flag.Duration("every", 3*time.Second, "How long each scripted label is held")
	stableFor := flag.Duration("stable-for", stub.DefaultStableFor, "How long a label must hold before it is committed")
	noModel := flag.Bool("no-model", false, "Answer every frame as if the model failed to load")
	level := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	if env := os.Getenv("LOG_LEVEL"); env != "" && *level == "info" {
		*level = env
	}
	log.Init(*level)

	var classifier stub.Classifier
	if !*noModel {
		classifier = stub.NewScripted(*every, strings.Split(*script, ",")...)
	}

	cfg := stub.DefaultConfig()
	cfg.StableFor = *stableFor
	cfg.Logger = log.L()
	srv := stub.New(classifier, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		log.Error("stub server failed", "error", err)
		os.Exit(1)
	}
}
