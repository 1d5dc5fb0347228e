// Command gateway runs the tunnel gateway: certificate issuance, the
// WebSocket tunnel acceptor, and the HTTPS surface described by
// spec.md §4.D.
package main

import (
	"context"
	"crypto/x509"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/sufield/trz-gateway/internal/ca"
	"github.com/sufield/trz-gateway/internal/config"
	"github.com/sufield/trz-gateway/internal/domain"
	"github.com/sufield/trz-gateway/internal/dynamicconfig"
	"github.com/sufield/trz-gateway/internal/gatewayhttp"
	"github.com/sufield/trz-gateway/internal/healthpb"
	"github.com/sufield/trz-gateway/internal/registry"
	"github.com/sufield/trz-gateway/internal/rpccodec"
	"github.com/sufield/trz-gateway/internal/tlsfactory"
	"github.com/sufield/trz-gateway/internal/trust"
	"github.com/sufield/trz-gateway/internal/tunnel"
)

func main() {
	configPath := flag.String("config", "gateway.yaml", "path to the gateway config file")
	debug := flag.Bool("debug", false, "enable debug-mode pacing and verbose logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if err := run(*configPath, *debug, logger); err != nil {
		logger.Error("gateway exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, debug bool, logger *slog.Logger) error {
	rpccodec.Register()

	rawCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	gcfg, err := config.ValidateGateway(rawCfg, debug)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	rootBundle, err := trust.LoadCertificateAndKeyFile(gcfg.RootCACertFile, gcfg.RootCAKeyFile)
	if err != nil {
		return fmt.Errorf("loading root ca: %w", err)
	}
	authority := ca.New(rootBundle.Leaf, rootBundle.PrivateKey, gcfg.ClientCertificateIssuer, ca.NewBootstrapCodes(rawCfg.AuthCode))
	clientTrust := trust.NewStore([]*x509.Certificate{rootBundle.Leaf})

	gatewayTLSBundle, err := trust.LoadCertificateAndKeyFile(gcfg.TLSCertFile, gcfg.TLSKeyFile)
	if err != nil {
		return fmt.Errorf("loading gateway tls material: %w", err)
	}

	tlsCell := dynamicconfig.NewCell(tlsfactory.ServerMaterial{
		Bundle:         gatewayTLSBundle,
		ClientTrust:    clientTrust,
		ExpectedSigner: gcfg.ClientCertificateIssuer,
	})

	reg := registry.New()
	listener := tunnel.NewListener(tlsCell, reg, func(s *grpc.Server) {
		healthpb.RegisterHealthServiceServer(s, healthpb.Server{})
	}, logger)

	addr := fmt.Sprintf("%s:%d", gcfg.Host, gcfg.Port)
	server := gatewayhttp.NewServer(addr, tlsfactory.Outer(tlsCell), logger)
	gatewayhttp.RegisterCertificateIssuance(server.Router(), authority, logger)
	gatewayhttp.RegisterTunnelUpgrade(server.Router(), listener)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		return err
	}
	logger.Info("gateway listening", "addr", addr)

	<-ctx.Done()
	logger.Info("gateway shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}
