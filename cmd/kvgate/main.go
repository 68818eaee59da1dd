package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/go-logr/logr"
	cmdutil "github.com/heysubinoy/kvgate/cmd"
	"github.com/heysubinoy/kvgate/internal"
	"github.com/heysubinoy/kvgate/internal/api"
	kvlogr "github.com/heysubinoy/kvgate/internal/logr"
	"github.com/heysubinoy/kvgate/internal/store"
	"github.com/heysubinoy/kvgate/internal/truststore"
	"github.com/heysubinoy/kvgate/pkg/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Configure ^C to terminate program
	ctx, cancel := context.WithCancel(context.Background())
	cmdutil.CatchCtrlC(cancel)

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		cmdutil.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	cmd := &cobra.Command{
		Use:           "kvgate",
		Short:         "kvgate key/value gateway",
		Long:          "kvgate exposes GET and SET on a remote Redis server over HTTP and gRPC.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Define run func in order to enable cobra's default help functionality
		Run: func(cmd *cobra.Command, args []string) {},
	}
	cmd.SetOut(out)

	var (
		help, version, logRequests bool
		configPath                 string
		loggerCfg                  kvlogr.Config
	)

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().BoolVar(&logRequests, "log-http-requests", false, "Log HTTP requests")
	cmd.Flags().BoolVar(&version, "version", false, "Print version of kvgate")
	cmd.Flags().BoolVarP(&help, "help", "h", false, "Print usage information")
	kvlogr.LoadConfigFromFlags(cmd.Flags(), &loggerCfg)

	if err := cmdutil.SetFlagsFromEnvVariables(cmd.Flags()); err != nil {
		return err
	}
	if err := cmd.ParseFlags(args); err != nil {
		return err
	}

	if help {
		return cmd.Help()
	}
	if version {
		fmt.Fprintln(cmd.OutOrStdout(), internal.Version)
		return nil
	}

	logger, err := kvlogr.NewWithWriter(out, &loggerCfg)
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	backend, err := openBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	kvStore := store.NewInstrumentedStore(backend, store.NewMetrics(reg))

	httpLn, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.HTTPAddr, err)
	}
	var grpcLn net.Listener
	if cfg.GRPCAddr != "" {
		grpcLn, err = net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			httpLn.Close()
			return fmt.Errorf("listening on %s: %w", cfg.GRPCAddr, err)
		}
	}

	// Group servers and if any one of them errors then terminate them all
	g, ctx := errgroup.WithContext(ctx)

	httpServer := api.NewHTTPServer(logger.WithValues("component", "http"), api.HTTPConfig{
		EnableRequestLogging: logRequests,
		Handlers:             []api.Handlers{api.NewServer(logger, kvStore)},
		Pinger:               backend,
		Gatherer:             reg,
	})
	g.Go(func() error {
		if err := httpServer.Start(ctx, httpLn); err != nil {
			return fmt.Errorf("http server terminated: %w", err)
		}
		return nil
	})

	if grpcLn != nil {
		grpcLogger := logger.WithValues("component", "grpc")
		grpcServer := api.NewGRPCTransport(grpcLogger, api.NewGRPCServer(kvStore))
		g.Go(func() error {
			if err := api.ServeGRPC(ctx, grpcLogger, grpcServer, grpcLn); err != nil {
				return fmt.Errorf("grpc server terminated: %w", err)
			}
			return nil
		})
	}

	// Block until error or Ctrl-C received.
	return g.Wait()
}

// openBackend provisions the store connection. Trust store failures abort
// startup.
func openBackend(ctx context.Context, logger logr.Logger, cfg *config.Config) (store.Backend, error) {
	typ, err := truststore.ParseType(cfg.Redis.SSL.TrustStoreType)
	if err != nil {
		return nil, err
	}
	redisCfg := store.RedisConfig{
		Host: cfg.Redis.Host,
		Port: cfg.Redis.Port,
		TLS: store.TLSConfig{
			Enabled:            cfg.Redis.SSL.Enabled,
			TrustStore:         cfg.Redis.SSL.TrustStore,
			TrustStorePassword: cfg.Redis.SSL.TrustStorePassword,
			TrustStoreType:     typ,
			ServerName:         cfg.Redis.SSL.ServerName,
		},
	}

	backend, err := store.Open(cfg.Backend, redisCfg)
	if err != nil {
		return nil, fmt.Errorf("provisioning %s store: %w", cfg.Backend, err)
	}

	if cfg.Redis.PingOnStart {
		if err := backend.Ping(ctx); err != nil {
			backend.Close()
			return nil, err
		}
	}

	if cfg.Backend == store.MemoryBackend {
		logger.Info("using in-memory store")
	} else {
		logger.Info("provisioned redis store", "address", redisCfg.Addr(), "tls", redisCfg.TLS.Enabled)
	}
	return backend, nil
}
