// Command embed prints the embedding of a text.
//
//	embed "some text"    prints the values separated by spaces
//	embed < requests     embeds each input line, printing <begin>/<end> framed vectors
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dshills/embedtext/internal/config"
	"github.com/dshills/embedtext/internal/embedder"
	"github.com/dshills/embedtext/internal/session"
)

func main() {
	os.Exit(run())
}

// run returns the exit status so deferred cleanup happens before exit
func run() int {
	configPath := flag.String("config", "", "Path to YAML config file (default ./"+config.DefaultFileName+" if present)")
	provider := flag.String("provider", "", "Embedding provider: local, jina, openai or command (overrides config)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] [text ...]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("failed to load config: %v", err)
		return 1
	}
	ecfg := cfg.EmbedderConfig()
	if *provider != "" {
		ecfg.Provider = *provider
	}

	emb, err := embedder.New(ecfg)
	if err != nil {
		log.Printf("failed to initialize embedder: %v", err)
		return 1
	}
	defer func() { _ = emb.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := session.New(emb)

	if flag.NArg() > 0 {
		vec, err := s.Process(ctx, strings.Join(flag.Args(), " "))
		if err != nil {
			log.Printf("embedding failed: %v", err)
			return 1
		}
		if err := session.WriteResponse(os.Stdout, vec, false); err != nil {
			log.Printf("failed to write vector: %v", err)
			return 1
		}
		return 0
	}

	if err := s.Run(ctx, os.Stdin, os.Stdout); err != nil && ctx.Err() == nil {
		log.Printf("session failed: %v", err)
		return 1
	}
	return 0
}
