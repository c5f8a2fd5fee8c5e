package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"solver-gateway/client"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Flags globais
	serverURL string
	verbose   bool
	session   string
	timeout   time.Duration
	tlsOpts   client.TransportOptions

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "solvectl",
	Short: "Client for the solver server",
	Long: `solvectl submits solver runs and polls their output until the server
reports "over", the same way the web page does.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&serverURL, "server", "s", envOr("SOLVER_SERVER", "http://localhost:8080"), "solver server base URL")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&session, "session", "", "session id sent as X-Solver-Session (default: cookie issued by the server)")
	pf.DurationVar(&timeout, "timeout", 30*time.Second, "per-request timeout")
	pf.StringVar(&tlsOpts.CAFile, "ca", "", "CA certificate file")
	pf.StringVar(&tlsOpts.CertFile, "cert", "", "client certificate file (mTLS)")
	pf.StringVar(&tlsOpts.KeyFile, "key", "", "client key file (mTLS)")
	pf.BoolVar(&tlsOpts.InsecureSkipVerify, "insecure", false, "skip server certificate verification")
	pf.BoolVar(&tlsOpts.DisableHTTP2, "no-http2", false, "disable HTTP/2 over TLS")

	rootCmd.AddCommand(solveCmd, cancelCmd, runsCmd, statsCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// newClient monta o client a partir das flags globais.
func newClient() (*client.Client, error) {
	tr, err := client.NewTransport(tlsOpts)
	if err != nil {
		return nil, err
	}
	opts := []client.Option{
		client.WithTransport(tr),
		client.WithTimeout(timeout),
		client.WithLogger(logger),
	}
	if session != "" {
		opts = append(opts, client.WithSession(session))
	}
	return client.New(serverURL, opts...)
}
