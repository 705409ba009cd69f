// Command dlcctl serves a Toptica DLC pro (or a simulation of one) over gRPC.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/itohio/dlcpro/pkg/config"
	"github.com/itohio/dlcpro/pkg/dlcpro"
	"github.com/itohio/dlcpro/pkg/rpc"
)

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	logger := newLogger(os.Stderr, cfg.Log.Verbosity)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("controller stopped", "error", err)
		stop()
		os.Exit(1)
	}
}

// counter is a repeatable boolean flag (-v -v).
type counter int

func (c *counter) String() string   { return strconv.Itoa(int(*c)) }
func (c *counter) Set(string) error { *c++; return nil }
func (c *counter) IsBoolFlag() bool { return true }

// parseArgs loads the config file, applies flag overrides and validates the
// backend selection. Errors have already been reported to stderr.
func parseArgs(args []string, stderr io.Writer) (*config.Config, error) {
	fs := flag.NewFlagSet("dlcctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configFlag     = fs.String("config", "dlcctl.yaml", "Configuration file path")
		deviceFlag     string
		simulationFlag = fs.Bool("simulation", false, "Use the simulated device instead of hardware")
		bindFlag       = fs.String("bind", "", "Address to bind the RPC server to")
		portFlag       int
		verbose, quiet counter
	)
	fs.StringVar(&deviceFlag, "d", "", "Device address (host[:port] or serial:<port>)")
	fs.StringVar(&deviceFlag, "device", "", "Same as -d")
	fs.IntVar(&portFlag, "p", config.DefaultPort, "RPC server port")
	fs.IntVar(&portFlag, "port", config.DefaultPort, "Same as -p")
	fs.Var(&verbose, "v", "Increase logging verbosity (repeatable)")
	fs.Var(&quiet, "q", "Decrease logging verbosity (repeatable)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "d", "device":
			cfg.Device.Address = deviceFlag
		case "simulation":
			cfg.Device.Simulation = *simulationFlag
		case "bind":
			cfg.Server.Bind = *bindFlag
		case "p", "port":
			cfg.Server.Port = portFlag
		}
	})
	cfg.Log.Verbosity += int(verbose) - int(quiet)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "%v\nYou need to specify either -simulation or -d. Use -help for more information.\n", err)
		fs.Usage()
		return nil, err
	}

	return cfg, nil
}

// newLogger returns a text logger. Verbosity 0 logs warnings and above;
// each step moves one slog level.
func newLogger(w io.Writer, verbosity int) *slog.Logger {
	level := slog.LevelWarn - slog.Level(4*verbosity)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// newBackend constructs the single backend selected by cfg.
func newBackend(cfg *config.Config, logger *slog.Logger) (dlcpro.Device, error) {
	if cfg.Device.Simulation {
		return dlcpro.NewMock(logger), nil
	}
	return dlcpro.NewHardware(cfg.Device.Address, cfg.Device.Timeout, logger)
}

// listen opens the RPC listener.
var listen = net.Listen

// run builds the configured backend and serves it.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	dev, err := newBackend(cfg, logger)
	if err != nil {
		return err
	}
	return runWith(ctx, cfg, dev, logger)
}

// runWith owns dev for the lifetime of the server and closes it exactly once
// when serving has stopped, whatever the reason.
func runWith(ctx context.Context, cfg *config.Config, dev dlcpro.Device, logger *slog.Logger) error {
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Warn("error closing backend", "error", err)
		}
	}()

	lis, err := listen("tcp", cfg.ListenAddress())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.ListenAddress(), err)
	}

	return serve(ctx, lis, dev, logger)
}

// serve runs the RPC server on lis until ctx is done or serving fails.
func serve(ctx context.Context, lis net.Listener, dev dlcpro.Device, logger *slog.Logger) error {
	srv := rpc.NewServer(dev, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()
	logger.Info("serving", "service", rpc.ServiceName, "address", lis.Addr().String())

	select {
	case <-ctx.Done():
		srv.GracefulStop()
		<-errCh
		logger.Info("shutdown complete")
		return nil
	case err := <-errCh:
		srv.Stop()
		return fmt.Errorf("server stopped: %w", err)
	}
}
