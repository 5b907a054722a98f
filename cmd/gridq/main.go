package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/alfredjeanlab/gridq/internal/client"
	"github.com/alfredjeanlab/gridq/internal/ui"
)

var version = "dev"

var (
	datasetsFile string
	transport    string
	httpURL      string
	serverAddr   string
	natsURL      string
	authToken    string
	jsonOutput   bool
	noColor      bool
	verbose      bool

	logger *slog.Logger
)

func defaultDatasetsFile() string {
	if s := os.Getenv("GRIDQ_DATASETS_FILE"); s != "" {
		return s
	}
	return "gridq.toml"
}

func defaultHTTPURL() string {
	if s := os.Getenv("GRIDQ_HTTP_URL"); s != "" {
		return s
	}
	return "http://localhost:8080"
}

func defaultServer() string {
	if s := os.Getenv("GRIDQ_SERVER"); s != "" {
		return s
	}
	return "localhost:9090"
}

var rootCmd = &cobra.Command{
	Use:           "gridq <command>",
	Short:         "Filter, sort and paginate tabular datasets",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		ui.Setup(os.Stdout, noColor)
		return nil
	},
}

// newRemoteClient returns a client for the selected transport, or nil when
// the transport is local.
func newRemoteClient() (client.Querier, error) {
	switch transport {
	case "local":
		return nil, nil
	case "http":
		return client.NewHTTPClient(httpURL, authToken), nil
	case "grpc":
		c, err := client.NewGRPCClient(serverAddr, authToken)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to server: %w", err)
		}
		return c, nil
	case "nats":
		if natsURL == "" {
			return nil, fmt.Errorf("--nats-url (or GRIDQ_NATS_URL) is required for the nats transport")
		}
		return client.NewNATSClient(natsURL)
	default:
		return nil, fmt.Errorf("unknown transport %q (must be local, http, grpc or nats)", transport)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&datasetsFile, "datasets", "d", defaultDatasetsFile(), "datasets file (TOML)")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "local", "where queries run (local, http, grpc or nats)")
	rootCmd.PersistentFlags().StringVar(&httpURL, "http-url", defaultHTTPURL(), "HTTP server URL")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", defaultServer(), "gRPC server address")
	rootCmd.PersistentFlags().StringVar(&natsURL, "nats-url", os.Getenv("GRIDQ_NATS_URL"), "NATS server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", os.Getenv("GRIDQ_AUTH_TOKEN"), "bearer token for remote servers")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false
	rootCmd.SetHelpFunc(colorizedHelpFunc())

	// Data
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(datasetsCmd)
	rootCmd.AddCommand(reloadCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", ui.RenderError("Error:"), err)
		os.Exit(1)
	}
}
