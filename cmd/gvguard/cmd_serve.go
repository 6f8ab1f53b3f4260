package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/gv-guard/internal/config"
	"github.com/danielpatrickdp/gv-guard/internal/engine"
	"github.com/danielpatrickdp/gv-guard/internal/httpapi"
	"github.com/danielpatrickdp/gv-guard/internal/metrics"
	"github.com/danielpatrickdp/gv-guard/internal/rpc"
	"github.com/danielpatrickdp/gv-guard/internal/scenario"
	"github.com/danielpatrickdp/gv-guard/internal/store"
)

// serveCmd runs the gRPC guard service and the HTTP metrics endpoint
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve guard.v1.GuardService over gRPC and metrics over HTTP",
	Long: `Serve keeps one monitor session per stream_id and answers Observe and
Classify calls. The HTTP side exposes /metrics, /healthz, /v1/classify and,
with --db, the stored runs.

Examples:
  gvguard serve
  gvguard serve --addr :50061 --metrics-addr :9090 --db gvguard.db`,
	RunE: runServe,
}

var (
	serveAddr        string
	serveMetricsAddr string
	serveDB          string
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "gRPC listen address (default: server.addr)")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "HTTP listen address (default: server.metrics_addr; empty disables)")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "Serve stored runs from this SQLite database")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}
	metricsAddr := cfg.Server.MetricsAddr
	if serveMetricsAddr != "" {
		metricsAddr = serveMetricsAddr
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.New(reg, knownScenarios(cfg)...)

	eng, err := engine.New(cfg.Engine, engine.Deps{Recorder: rec, Logger: &logger})
	if err != nil {
		return err
	}

	var st *store.Store
	if serveDB != "" {
		st, err = store.NewStore(serveDB)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(rpc.UnaryLogger(logger)))
	rpcSrv := rpc.NewServer(eng, rec, &logger)
	rpc.Register(gs, rpcSrv)

	var httpSrv *httpapi.Server
	if metricsAddr != "" {
		h := httpapi.NewGuardHandler(eng.Classifier(), st, logger)
		httpSrv = httpapi.NewServer(h, reg, logger, httpapi.WithAddr(metricsAddr))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", addr).Msg("grpc server listening")
		if err := gs.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	if httpSrv != nil {
		g.Go(httpSrv.Start)
	}
	if idle := cfg.Server.StreamIdleTimeout; idle > 0 {
		g.Go(func() error {
			rpcSrv.RunEvictor(gctx, idle, evictInterval(idle))
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down")
		gs.GracefulStop()
		if httpSrv != nil {
			return httpSrv.Stop(context.Background())
		}
		return nil
	})
	return g.Wait()
}

// knownScenarios is the metric label set for serve: registered scenarios
// plus any the config names. Clients may send anything else.
func knownScenarios(c *config.Config) []string {
	seen := map[string]struct{}{}
	add := func(name string) {
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	for _, n := range scenario.NewRegistry().Names() {
		add(n)
	}
	for _, n := range c.Engine.Policy.UnrecoverableScenarios {
		add(n)
	}
	for n := range c.Engine.MonitorOverrides {
		add(n)
	}
	for _, sc := range c.Scenarios {
		add(sc.Name)
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func evictInterval(idle time.Duration) time.Duration {
	if iv := idle / 4; iv < time.Minute {
		return iv
	}
	return time.Minute
}
