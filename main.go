package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/krau/nsfwdetector/classifier"
	"github.com/krau/nsfwdetector/config"
	"github.com/krau/nsfwdetector/onnx"
	"github.com/krau/nsfwdetector/server"
)

// @title NSFW Detection API
// @version 1.0
// @description Detects NSFW content using a pretrained image classifier
// @BasePath /

// @securityDefinitions.apikey APIKey
// @in header
// @name X-API-Key
func main() {
	os.Exit(execute(context.Background(), os.Args[1:]))
}

func execute(ctx context.Context, args []string) int {
	cmd := rootCmd()
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		slog.Error("nsfw-detector exited", slog.String("error", err.Error()))
		return 1
	}
	return 0
}

func rootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "nsfw-detector",
		Short:         "Serve an NSFW image classifier over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.toml (default $NSFW_CONFIG or ./config.toml)")
	return cmd
}

func run(parent context.Context, configPath string) error {
	ctx, cancel := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogger(cfg.LogLevel)
	slog.Info("Starting nsfw-detector", slog.String("backend", cfg.Backend))

	clf, closeClassifier, err := loadClassifier(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClassifier()
	slog.Info("NSFW model loaded successfully", slog.String("model", cfg.ModelID))

	gin.SetMode(gin.ReleaseMode)
	return server.New(cfg, clf).Run(ctx)
}

func loadClassifier(ctx context.Context, cfg config.Config) (classifier.Classifier, func(), error) {
	if cfg.Backend == config.BackendVision {
		v, err := classifier.NewVision(ctx, cfg.TopK)
		if err != nil {
			return nil, nil, fmt.Errorf("model loading failed: %w", err)
		}
		return v, v.Close, nil
	}

	labels := cfg.Labels
	if cfg.LabelsFile != "" {
		var err error
		labels, err = classifier.ReadLabels(filepath.Join(cfg.ModelDir, cfg.LabelsFile))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read labels: %w", err)
		}
	}

	modelPath, err := onnx.NewDownloader().EnsureModel(ctx, cfg.ModelUrl, cfg.ModelDir, cfg.ModelFileName)
	if err != nil {
		return nil, nil, fmt.Errorf("model loading failed: %w", err)
	}

	destroyEnv, err := onnx.Init(cfg.Libonnx)
	if err != nil {
		return nil, nil, err
	}
	m, err := classifier.NewONNX(modelPath, labels, cfg.TopK, cfg.Sessions)
	if err != nil {
		destroyEnv()
		return nil, nil, fmt.Errorf("model loading failed: %w", err)
	}
	return m, func() {
		m.Close()
		destroyEnv()
	}, nil
}

func setupLogger(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
