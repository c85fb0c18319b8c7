// protohackers runs the protohackers TCP services.
//
// Usage:
//
//	go run ./cmd/protohackers -service means -port 7777
//	go run ./cmd/protohackers -config configs/protohackers.example.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luismedel/protohackers-challenge/internal/config"
	"github.com/luismedel/protohackers-challenge/internal/health"
	"github.com/luismedel/protohackers-challenge/internal/logging"
	"github.com/luismedel/protohackers-challenge/internal/means"
	"github.com/luismedel/protohackers-challenge/internal/metrics"
	"github.com/luismedel/protohackers-challenge/internal/pool"
	"github.com/luismedel/protohackers-challenge/internal/primetime"
	"github.com/luismedel/protohackers-challenge/internal/server"
	"github.com/luismedel/protohackers-challenge/internal/smoketest"
	"github.com/luismedel/protohackers-challenge/internal/version"
)

// Service names accepted by -service.
const (
	serviceSmoke = "smoke"
	servicePrime = "prime"
	serviceMeans = "means"
)

type options struct {
	configPath  string
	service     string
	addr        string
	port        int
	trace       bool
	showVersion bool

	// Flags given explicitly on the command line.
	set map[string]bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*options, error) {
	o := &options{}
	fs.StringVar(&o.configPath, "config", "", "path to config file (built-in defaults when empty)")
	fs.StringVar(&o.service, "service", serviceMeans, "service to run: smoke, prime or means")
	fs.StringVar(&o.addr, "addr", config.DefaultBindAddr, "address to bind")
	fs.StringVar(&o.addr, "a", config.DefaultBindAddr, "address to bind (shorthand)")
	fs.IntVar(&o.port, "port", config.DefaultMeansToAnEndPort, "port to bind")
	fs.IntVar(&o.port, "p", config.DefaultMeansToAnEndPort, "port to bind (shorthand)")
	fs.BoolVar(&o.trace, "trace", true, "write logs to stdout")
	fs.BoolVar(&o.showVersion, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			o.set["addr"] = true
		case "p":
			o.set["port"] = true
		default:
			o.set[f.Name] = true
		}
	})

	switch o.service {
	case serviceSmoke, servicePrime, serviceMeans:
	default:
		return nil, fmt.Errorf("unknown service %q", o.service)
	}
	return o, nil
}

// loadConfig builds the configuration from the config file, if any, and the
// command line. Without a file only the service named by -service runs.
func loadConfig(o *options) (*config.Config, error) {
	var cfg *config.Config
	if o.configPath == "" {
		cfg = config.Default()
		cfg.Services.MeansToAnEnd.Enabled = false
	} else {
		var err error
		cfg, err = config.LoadAndValidate(o.configPath)
		if err != nil {
			return nil, err
		}
	}

	var svc *config.ServiceConfig
	switch o.service {
	case serviceSmoke:
		svc = &cfg.Services.SmokeTest
	case servicePrime:
		svc = &cfg.Services.PrimeTime
	default:
		svc = &cfg.Services.MeansToAnEnd.ServiceConfig
	}

	if o.configPath == "" {
		svc.Enabled = true
		svc.Addr = o.addr
		svc.Port = o.port
	} else if o.set["addr"] || o.set["port"] || o.set["service"] {
		svc.Enabled = true
		if o.set["addr"] {
			svc.Addr = o.addr
		}
		if o.set["port"] {
			svc.Port = o.port
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// buildServers creates one server, with its own pool, per enabled service.
func buildServers(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) []*server.Server {
	type service struct {
		name    string
		cfg     config.ServiceConfig
		handler server.Handler
	}

	var services []service
	if cfg.Services.SmokeTest.Enabled {
		services = append(services, service{serviceSmoke, cfg.Services.SmokeTest, smoketest.New()})
	}
	if cfg.Services.PrimeTime.Enabled {
		services = append(services, service{servicePrime, cfg.Services.PrimeTime, primetime.New()})
	}
	if mc := cfg.Services.MeansToAnEnd; mc.Enabled {
		h := means.New(means.Config{
			ReadBufferRecords: mc.ReadBufferRecords,
			SharedLedger:      mc.SharedLedger,
		})
		services = append(services, service{serviceMeans, mc.ServiceConfig, h})
	}

	servers := make([]*server.Server, 0, len(services))
	for _, s := range services {
		sm := m.Service(s.name)
		p := pool.New(pool.Config{
			MaxTasks:      cfg.Pool.MaxTasks,
			AllocRetries:  *cfg.Pool.AllocRetries,
			RetryInterval: cfg.Pool.RetryInterval,
		},
			pool.WithLogger(logger.With("service", s.name)),
			pool.WithMetrics(sm),
		)
		servers = append(servers, server.New(server.Config{
			Name:         s.name,
			Addr:         s.cfg.Address(),
			DrainTimeout: cfg.Server.DrainTimeout,
		}, s.handler, p,
			server.WithLogger(logger),
			server.WithMetrics(sm),
		))
	}
	return servers
}

func main() {
	opts, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if opts.showVersion {
		fmt.Println(version.String())
		return
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	var console io.Writer
	if opts.trace {
		console = os.Stdout
	}
	logger, logCloser, err := logging.New(cfg.Log, console)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(logger)

	logger.Info("starting protohackers",
		"version", version.Version,
		"commit", version.Commit,
		"go", version.GoVersion(),
		"config", opts.configPath,
		"instance_id", cfg.Instance.ID,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("protohackers failed", "error", err)
		logCloser.Close()
		os.Exit(1)
	}

	logger.Info("protohackers stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received shutdown signal", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(metrics.DefaultNamespace)
	}

	servers := buildServers(cfg, m, logger)
	services := make([]health.Service, len(servers))
	for i, s := range servers {
		services[i] = s
	}
	checker := health.NewChecker(services...)

	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}

	if cfg.Metrics.Enabled {
		healthServer := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           checker.Handler(m.Handler(), cfg.Metrics.Path),
			ReadHeaderTimeout: 5 * time.Second,
		}

		g.Go(func() error {
			logger.Info("starting health server",
				"port", cfg.Metrics.Port,
				"health_url", fmt.Sprintf("http://localhost:%d/health", cfg.Metrics.Port),
				"metrics_path", cfg.Metrics.Path,
			)
			if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("health server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()

			// Graceful shutdown of health server
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer shutdownCancel()
			return healthServer.Shutdown(shutdownCtx)
		})
	}

	if cfg.Health.GRPCPort > 0 {
		addr := net.JoinHostPort("", strconv.Itoa(cfg.Health.GRPCPort))
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			cancel()
			g.Wait()
			return fmt.Errorf("listen %s: %w", addr, err)
		}
		grpcHealth := health.NewGRPCServer(checker, health.DefaultPollInterval, logger)
		g.Go(func() error {
			return grpcHealth.Serve(gctx, ln)
		})
	}

	logger.Info("protohackers running", "services", len(servers))

	return g.Wait()
}
