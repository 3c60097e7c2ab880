package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/polymotion/animstreamd/internal/animstore"
	"github.com/polymotion/animstreamd/internal/config"
	"github.com/polymotion/animstreamd/internal/httpapi"
	"github.com/polymotion/animstreamd/internal/logging"
	"github.com/polymotion/animstreamd/internal/session"
	"github.com/polymotion/animstreamd/internal/worker"
)

var (
	version = "0.1.0"
	cfgFile string

	workerKind   string
	workerSource string
	workerFPS    float64
	workerListen string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "animstreamd",
	Short: "Real-time pose streaming daemon",
	Long:  `animstreamd drives pose-producer worker processes and streams their frames to subscribers over HTTP/WebSocket.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the daemon's HTTP control plane",
	Run: func(cmd *cobra.Command, args []string) {
		runServe()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("animstreamd v%s\n", version)
	},
}

// internalWorkerCmd is never invoked directly by an operator; Session.Start
// re-execs the daemon's own binary with this subcommand to produce an
// isolated pose-producer process per session.
var internalWorkerCmd = &cobra.Command{
	Use:    "internal-worker",
	Short:  "Run one pose producer worker (internal use only)",
	Hidden: true,
	Run: func(cmd *cobra.Command, args []string) {
		runInternalWorker()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/animstreamd/animstreamd.yaml)")

	internalWorkerCmd.Flags().StringVar(&workerKind, "kind", "", "animator kind: FK or VAE")
	internalWorkerCmd.Flags().StringVar(&workerSource, "source", "", "path to the clip or model bundle this worker drives")
	internalWorkerCmd.Flags().Float64Var(&workerFPS, "fps", 30, "initial tick rate")
	internalWorkerCmd.Flags().StringVar(&workerListen, "listen", "", "path of the session's listener to dial")
	_ = internalWorkerCmd.MarkFlagRequired("kind")
	_ = internalWorkerCmd.MarkFlagRequired("source")
	_ = internalWorkerCmd.MarkFlagRequired("listen")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(internalWorkerCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(cfg *config.Config) {
	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, cfg.LogMaxSizeMB, cfg.LogMaxBackups)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
			logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stdout)
		} else {
			logging.Init(cfg.LogFormat, cfg.LogLevel, logging.TeeWriter(os.Stdout, rw))
		}
	} else {
		logging.Init(cfg.LogFormat, cfg.LogLevel, os.Stdout)
	}
	log = logging.L("main")
}

// runServe loads configuration, builds the session registry and animation
// store, and runs the HTTP control plane until an interrupt or term signal
// arrives, at which point every running session is torn down before exit.
func runServe() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	initLogging(cfg)

	selfBinary, err := os.Executable()
	if err != nil {
		log.Error("resolve own executable path", "error", err)
		os.Exit(1)
	}

	store, err := animstore.NewManager(cfg)
	if err != nil {
		log.Error("build animation store", "error", err)
		os.Exit(1)
	}

	registry := session.NewRegistry(selfBinary)
	server := httpapi.New(cfg, registry, store)

	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	go func() {
		log.Info("listening", "addr", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)

	registry.Close()
	log.Info("stopped")
}

// runInternalWorker is the entry point re-exec'd by Session.Start; it never
// touches config.Load since every parameter it needs arrives as a flag.
func runInternalWorker() {
	logging.Init("text", "info", os.Stdout)

	err := worker.Run(worker.Config{
		Kind:       workerKind,
		SourcePath: workerSource,
		FPS:        workerFPS,
		ListenPath: workerListen,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}
