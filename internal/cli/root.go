package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"finance_tracker/internal/config"
	"finance_tracker/internal/obs"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

type rootOptions struct {
	configFile string
	listenAddr string
	grpcAddr   string
	format     string
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "finance-tracker",
		Short: "personal finance tracker API",
		Long: `Serves the finance tracker over HTTP and gRPC. Transactions are read
through a short-lived per-user cache that every write invalidates.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default is $HOME/.finance-tracker.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cmd, opts)
		},
	}
	serveCmd.Flags().StringVar(&opts.listenAddr, "listen", "", "HTTP listen address (overrides config)")
	serveCmd.Flags().StringVar(&opts.grpcAddr, "grpc", "", "gRPC listen address (overrides config)")

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print an example config",
		RunE: func(cmd *cobra.Command, args []string) error {
			example := config.Example()
			switch strings.ToLower(opts.format) {
			case "", "yaml":
				fmt.Fprint(cmd.OutOrStdout(), example.YAML())
			case "json":
				fmt.Fprintln(cmd.OutOrStdout(), example.JSON())
			default:
				return fmt.Errorf("unknown format %q", opts.format)
			}
			return nil
		},
	}
	configCmd.Flags().StringVar(&opts.format, "format", "yaml", "output format: yaml or json")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), Version)
		},
	}

	root.AddCommand(serveCmd, configCmd, versionCmd)
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cobra.Command, opts *rootOptions) error {
	cfg, used, err := config.Load(opts.configFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("listen") {
		cfg.ListenAddr = opts.listenAddr
	}
	if cmd.Flags().Changed("grpc") {
		cfg.GRPCAddr = opts.grpcAddr
	}

	logger, err := obs.NewLogger(obs.LoggingConfig{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
	})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	restore := zap.ReplaceGlobals(logger)
	defer restore()
	defer func() { _ = logger.Sync() }()

	warnings, err := config.Validate(cfg)
	for _, warning := range warnings {
		zap.L().Warn("config warning", zap.String("warning", warning))
	}
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if used != "" {
		zap.L().Info("using config file", zap.String("path", used))
	}

	app, err := Build(cfg)
	if err != nil {
		return err
	}
	srv, err := app.Start()
	if err != nil {
		return err
	}

	<-ctx.Done()
	zap.L().Info("shutting down")
	if err := srv.Shutdown(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
