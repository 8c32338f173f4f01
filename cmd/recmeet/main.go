package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/recmeet/recmeet/internal/config"
	"github.com/recmeet/recmeet/internal/deps"
	"github.com/recmeet/recmeet/internal/job"
	"github.com/recmeet/recmeet/internal/language"
	"github.com/recmeet/recmeet/internal/media"
	"github.com/recmeet/recmeet/internal/models/whisper"
	"github.com/recmeet/recmeet/internal/notify"
	"github.com/recmeet/recmeet/internal/queue"
	"github.com/recmeet/recmeet/internal/server"
	"github.com/recmeet/recmeet/internal/store"
	"github.com/recmeet/recmeet/internal/summarize"
	"github.com/recmeet/recmeet/internal/transcriber"
	"github.com/recmeet/recmeet/internal/worker"
)

var version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "recmeet",
	Short: "Meeting recording transcription and summarization service",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		modelCmd(),
		languagesCmd(),
		doctorCmd(),
		versionCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server and job workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}
}

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage local whisper.cpp models",
	}

	cmd.AddCommand(modelListCmd())
	cmd.AddCommand(modelDownloadCmd())
	cmd.AddCommand(modelRemoveCmd())

	return cmd
}

func modelListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List downloadable whisper.cpp models",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, m := range whisper.List() {
				prefix := "[ ]"
				if whisper.IsInstalled(m.ID) {
					prefix = "[x]"
				}
				suffix := m.Size
				if m.Multilingual {
					suffix += ", multilingual"
				}
				fmt.Printf("%s %s [%s]\n", prefix, m.ID, suffix)
			}
			return nil
		},
	}
}

func modelDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <model-id>",
		Short: "Download a whisper.cpp model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModelDownload(cmd.Context(), args[0])
		},
	}
}

func runModelDownload(ctx context.Context, modelID string) error {
	info := whisper.Lookup(modelID)
	if info == nil {
		return fmt.Errorf("unknown model: %s", modelID)
	}

	if whisper.IsInstalled(modelID) {
		fmt.Printf("model '%s' is already installed at %s\n", modelID, whisper.ModelPath(modelID))
		return nil
	}

	fmt.Printf("downloading %s (%s)...\n", modelID, info.Size)

	var lastPercent int
	err := whisper.Download(ctx, modelID, func(downloaded, total int64) {
		if total > 0 {
			percent := int(downloaded * 100 / total)
			if percent >= lastPercent+10 {
				fmt.Printf("%d%% ", percent)
				lastPercent = percent
			}
		}
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	fmt.Printf("\ndownload complete: %s\n", whisper.ModelPath(modelID))
	return nil
}

func modelRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <model-id>",
		Short: "Remove a downloaded whisper.cpp model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := whisper.Remove(args[0]); err != nil {
				return err
			}
			fmt.Printf("model '%s' removed\n", args[0])
			return nil
		},
	}
}

func languagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported transcription language codes",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, lang := range language.List() {
				fmt.Printf("%-4s %s (%s)\n", lang.Code, lang.Name, lang.NativeName)
			}
			return nil
		},
	}
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			printDepStatus("ffmpeg", deps.CheckFFmpeg(), true)
			printDepStatus("ffprobe", deps.CheckFFprobe(), true)
			printDepStatus("whisper-cli", deps.CheckWhisperCli(), false)
			return nil
		},
	}
}

func printDepStatus(name string, status deps.Status, required bool) {
	switch {
	case status.Installed:
		fmt.Printf("[x] %s: %s\n", name, status.Path)
		if status.Version != "" {
			fmt.Printf("    %s\n", status.Version)
		}
	case required:
		fmt.Printf("[ ] %s: not found (required)\n", name)
	default:
		fmt.Printf("[ ] %s: not found (only needed for the whisper.cpp provider)\n", name)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func serve() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := config.NewManager()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg := manager.GetConfig()

	setupLogging(cfg.Server.LogLevel)

	manager.OnReload(func(c *config.Config) {
		setupLogging(c.Server.LogLevel)
	})
	if err := manager.StartWatching(ctx); err != nil {
		log.Warn().Err(err).Msg("config hot reload unavailable")
	}
	defer manager.Stop()

	if err := os.MkdirAll(cfg.Server.UploadDir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory: %w", err)
	}

	if !deps.CheckFFmpeg().Installed || !deps.CheckFFprobe().Installed {
		log.Warn().Msg("ffmpeg/ffprobe not found in PATH, jobs will fail until installed")
	}

	source := media.NewFFmpeg()

	engine, err := transcriber.NewEngine(cfg.ToTranscriberConfig(), source)
	if err != nil {
		return fmt.Errorf("transcription backend unavailable: %w", err)
	}

	composer := summarize.NewComposer(summarize.NewOpenAIAdapter(cfg.ToSummarizeConfig()))

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open result storage: %w", err)
	}
	persister := store.NewPersister(objects, func() store.VerifyConfig {
		return manager.GetConfig().ToVerifyConfig()
	})

	registry := notify.NewMemoryRegistry()
	pusher, err := newPusher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize push notifications: %w", err)
	}
	fanout := notify.NewFanout(registry, pusher)

	jobs := job.NewStore()
	processor := worker.NewProcessor(source, engine, composer, persister, jobs, fanout, func() float64 {
		return manager.GetConfig().Transcription.MaxChunkSeconds
	})

	var publisher queue.Publisher
	switch cfg.Queue.Backend {
	case "memory":
		mem := queue.NewMemory(cfg.Queue.Workers, processor)
		mem.Start()
		defer mem.Shutdown()
		publisher = mem
		log.Info().Int("workers", cfg.Queue.Workers).Msg("in-process queue started")
	case "cloudtasks":
		ct, err := queue.NewCloudTasks(ctx, cfg.Queue.Project, cfg.Queue.Location, cfg.Queue.Queue, cfg.Queue.TargetURL)
		if err != nil {
			return fmt.Errorf("failed to connect to cloud tasks: %w", err)
		}
		defer ct.Close()
		publisher = ct
		log.Info().Str("queue", cfg.Queue.Queue).Msg("cloud tasks queue connected")
	default:
		return fmt.Errorf("unknown queue backend: %s", cfg.Queue.Backend)
	}

	intake := job.NewIntake(jobs, publisher)
	srv := server.New(intake, jobs, objects, registry, processor, cfg.Server.UploadDir, func() int64 {
		return manager.GetConfig().MaxUploadBytes()
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Str("version", version).Msg("recmeet server starting")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func setupLogging(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = v
	}
	if level != "" {
		if l, err := zerolog.ParseLevel(level); err == nil {
			lvl = l
		}
	}
	log.Logger = log.Level(lvl)
}

func newObjectStore(ctx context.Context, cfg *config.Config) (store.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		return store.NewGCSStore(ctx, cfg.Storage.Bucket)
	case "local":
		return store.NewLocalStore(cfg.Storage.LocalDir)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

func newPusher(ctx context.Context, cfg *config.Config) (notify.Pusher, error) {
	if !cfg.Notifications.Enabled {
		return notify.Nop{}, nil
	}
	return notify.NewFCMPusher(ctx, cfg.Notifications.FirebaseProject)
}
