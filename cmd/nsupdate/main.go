// Command nsupdate reads RFC 2136 dynamic-update directives from a file or
// stdin and submits them to a DNS server, with optional TSIG authentication
// and a Prometheus metrics endpoint.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/nsupdate-go/nsupdate/internal/config"
	"github.com/nsupdate-go/nsupdate/internal/lineproc"
	"github.com/nsupdate-go/nsupdate/internal/metrics"
	"github.com/nsupdate-go/nsupdate/internal/session"
)

func main() {
	var (
		configFile  string
		metricsAddr string
		debug       bool
	)

	cmd := &cobra.Command{
		Use:   "nsupdate [qfile ...]",
		Short: "Submit RFC 2136 dynamic DNS updates from directive files or stdin",
		Long:  "Submit RFC 2136 dynamic DNS updates from one or more directive files, read in order; \"-\" (or no file at all) reads from stdin.",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			rec := metrics.NewRecorder(reg)
			if metricsAddr != "" {
				go func() {
					if err := metrics.Serve(ctx, metricsAddr, reg, slog.Default()); err != nil {
						slog.Error("metrics server exited", "err", err)
					}
				}()
			}

			sess := session.New(session.WithOutput(os.Stdout), session.WithMetrics(rec))
			if debug {
				sess.EnableDebug()
			}
			if configFile != "" {
				defaults, err := config.Load(configFile)
				if err != nil {
					return fmt.Errorf("loading config file: %w", err)
				}
				if err := defaults.Apply(sess.Ctx()); err != nil {
					return fmt.Errorf("applying config file: %w", err)
				}
			}

			for _, qfile := range args {
				if err := runFile(qfile, sess); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "YAML file of session defaults (server, zone, TSIG key)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	cmd.Flags().BoolVar(&debug, "debug", false, "enable verbose logging, equivalent to a leading `debug` directive")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		slog.Error("nsupdate failed", "err", err)
		os.Exit(1)
	}
}

// runFile processes one directive source; "-" reads from stdin, matching
// the original qfile handling.
func runFile(qfile string, sess *session.Session) error {
	var in io.Reader = os.Stdin
	if qfile != "-" {
		f, err := os.Open(qfile)
		if err != nil {
			return fmt.Errorf("opening input file %s: %w", qfile, err)
		}
		defer f.Close()
		in = f
	}
	return lineproc.Run(in, sess, sess.Logger())
}
