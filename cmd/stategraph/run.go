package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/randalmurphal/stategraph/internal/logging"
	"github.com/randalmurphal/stategraph/internal/workflows"
	"github.com/randalmurphal/stategraph/pkg/stategraph"
	"github.com/randalmurphal/stategraph/pkg/stategraph/observability"
	"github.com/randalmurphal/stategraph/pkg/stategraph/tracelog"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <workflow> <input>...",
		Short: "Run a workflow once per input",
		Long: `Run executes the named workflow for every input argument. Independent
inputs run concurrently, bounded by --concurrency. The workflows use scripted
LLM responses and simulated search, so runs are offline and repeatable.`,
		Args:      cobra.MinimumNArgs(2),
		ValidArgs: workflows.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			asJSON, _ := cmd.Flags().GetBool("json")
			return runWorkflow(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), s, args[0], args[1:], asJSON)
		},
	}

	f := cmd.Flags()
	f.Int("max-steps", stategraph.DefaultMaxSteps, "step ceiling per run")
	f.Int("max-retries", workflows.DefaultMaxRetries, "failed attempts per stage before the fallback")
	f.Int("concurrency", 4, "maximum concurrent runs")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	f.Duration("search-latency", 0, "simulated search latency")
	f.Duration("stage-timeout", 0, "per-stage timeout (0 disables)")
	f.Bool("json", false, "print each final record as JSON")
	return cmd
}

type runOutcome struct {
	input string
	res   *stategraph.RunResult
	err   error
}

func runWorkflow(ctx context.Context, out, errOut io.Writer, s Settings, name string, inputs []string, asJSON bool) error {
	logger, err := logging.NewWriter(errOut, s.LogLevel, s.LogFormat)
	if err != nil {
		return err
	}

	w, err := workflows.Lookup(name)
	if err != nil {
		return err
	}
	compiled, err := w.Build(workflows.Deps{
		LLM:             workflows.NewCannedLLM(),
		Search:          workflows.SimulatedSearcher{Latency: s.SearchLatency},
		MaxRetries:      s.MaxRetries,
		ResultsPerTopic: s.ResultsPerTopic,
		StageTimeout:    s.StageTimeout,
	})
	if err != nil {
		return fmt.Errorf("build %s: %w", w.Name, err)
	}

	opts := []stategraph.RunOption{
		stategraph.WithMaxSteps(s.MaxSteps),
		stategraph.WithObservabilityLogger(logger),
	}

	var recorder *tracelog.Recorder
	if s.Trace != "" {
		store, err := tracelog.Open(s.Trace)
		if err != nil {
			return err
		}
		defer store.Close()
		recorder = tracelog.NewRecorder(store, tracelog.WithRecorderLogger(logger))
		opts = append(opts, stategraph.WithHooks(recorder))
	}

	if s.MetricsAddr != "" {
		stop, err := serveMetrics(s.MetricsAddr, logger, &opts)
		if err != nil {
			return err
		}
		defer stop()
	}

	outcomes := make([]runOutcome, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.Concurrency)
	for i, input := range inputs {
		g.Go(func() error {
			res, err := compiled.Execute(stategraph.NewContext(gctx, stategraph.WithLogger(logger)), w.Initial(input), opts...)
			outcomes[i] = runOutcome{input: input, res: res, err: err}
			// Cancellation stops the batch; other fatal errors are per run.
			if errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var failed []error
	for _, o := range outcomes {
		if err := printOutcome(out, w, o, asJSON); err != nil {
			return err
		}
		if o.err != nil {
			failed = append(failed, fmt.Errorf("run %q: %w", o.input, o.err))
		}
	}
	if recorder != nil {
		if err := recorder.Err(); err != nil {
			logger.Warn("trace incomplete", "err", err)
		}
	}
	return errors.Join(failed...)
}

// serveMetrics registers a Prometheus recorder in opts and serves it until
// the returned stop function is called.
func serveMetrics(addr string, logger *slog.Logger, opts *[]stategraph.RunOption) (func(), error) {
	reg := prometheus.NewRegistry()
	recorder, err := observability.NewPrometheusMetrics(reg)
	if err != nil {
		return nil, err
	}
	*opts = append(*opts, stategraph.WithMetricsRecorder(recorder))

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", ln.Addr().String())

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func printOutcome(out io.Writer, w workflows.Workflow, o runOutcome, asJSON bool) error {
	if asJSON {
		rec := stategraph.Record{}
		if o.res != nil {
			rec = o.res.State
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "== %s: %s\n", w.Name, o.input)
	if o.res != nil {
		fmt.Fprintf(&b, "run %s, %d steps: %s\n", o.res.RunID, o.res.Steps, strings.Join(o.res.Path, " -> "))
		fmt.Fprintf(&b, "\n%s\n", o.res.State.String(w.Output, ""))
		if errs := o.res.State.Strings(stategraph.DefaultErrorsField, nil); len(errs) > 0 {
			b.WriteString("\nerrors:\n")
			for _, e := range errs {
				fmt.Fprintf(&b, "  - %s\n", e)
			}
		}
	}
	if o.err != nil {
		fmt.Fprintf(&b, "\nfailed: %v\n", o.err)
	}
	_, err := io.WriteString(out, b.String())
	return err
}
