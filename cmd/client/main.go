package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"pictura/imagegen/pkg/genclient"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "image generation server base URL")
	prompt := flag.String("prompt", "", "text prompt (defaults to the remaining arguments)")
	out := flag.String("out", "generated-image.png", "where to save the first image")
	token := flag.String("token", os.Getenv("IMAGEGEN_TOKEN"), "bearer token, when the server requires auth")
	pollInterval := flag.Duration("poll", genclient.DefaultPollInterval, "interval between status polls")
	maxWait := flag.Duration("max-wait", genclient.DefaultMaxWait, "give up polling after this long")
	retries := flag.Int("retries", genclient.DefaultMaxRetries, "retries after a provider timeout")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	text := *prompt
	if text == "" {
		text = strings.Join(flag.Args(), " ")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := genclient.New(*server, genclient.WithToken(*token))
	gen := genclient.NewGenerator(client, genclient.Options{
		PollInterval: *pollInterval,
		MaxWait:      *maxWait,
		MaxRetries:   *retries,
		OnState: func(c genclient.StateChange) {
			fields := []zap.Field{zap.String("state", string(c.State)), zap.Int("attempt", c.Attempt)}
			if c.Err != nil {
				fields = append(fields, zap.Error(c.Err))
			}
			logger.Info("generation", fields...)
		},
	})

	start := time.Now()
	result, err := gen.Generate(ctx, text)
	if err != nil {
		logger.Fatal("generation failed", zap.Error(err))
	}
	if len(result.Data) == 0 {
		logger.Fatal("server returned no images")
	}
	image := result.Data[0]
	logger.Info("image ready",
		zap.String("url", image.URL),
		zap.String("revised_prompt", image.RevisedPrompt),
		zap.Duration("elapsed", time.Since(start)),
	)

	if err := save(ctx, client, image.URL, *out); err != nil {
		logger.Fatal("failed to save image", zap.Error(err))
	}
	fmt.Println(*out)
}

func save(ctx context.Context, client *genclient.Client, url, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := client.Download(ctx, url, f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
