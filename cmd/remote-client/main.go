// Command remote-client runs the tunnel client runtime: it bootstraps
// a leaf certificate from the gateway, dials the tunnel, and keeps it
// alive with health pings, per spec.md §4.H.
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/sufield/trz-gateway/internal/clientruntime"
	"github.com/sufield/trz-gateway/internal/config"
	"github.com/sufield/trz-gateway/internal/domain"
	"github.com/sufield/trz-gateway/internal/rpccodec"
	"github.com/sufield/trz-gateway/internal/trust"
)

func main() {
	configPath := flag.String("config", "client.yaml", "path to the client config file")
	name := flag.String("name", "remote-client", "client name presented at certificate issuance")
	connections := flag.Int("connections", 1, "number of concurrent tunnel connections to maintain")
	debug := flag.Bool("debug", clientruntime.Debug, "enable debug-mode pacing and verbose logging")
	flag.Parse()

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if err := run(*configPath, *name, *connections, *debug, logger); err != nil {
		logger.Error("remote client exited with error", "error", err)
		os.Exit(1)
	}
}

func run(configPath, name string, connections int, debug bool, logger *slog.Logger) error {
	rpccodec.Register()

	rawCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	ccfg, err := config.ValidateClientRuntime(rawCfg, debug)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfigInvalid, err)
	}

	gatewayTrust, err := trust.LoadStoreFile(logger, ccfg.RootCACertFile)
	if err != nil {
		return fmt.Errorf("loading gateway trust store: %w", err)
	}

	httpBaseURL := fmt.Sprintf("https://%s:%d", ccfg.Host, ccfg.Port)
	wsURL := fmt.Sprintf("wss://%s:%d/remote/tunnel/%s", ccfg.Host, ccfg.Port, name)

	issuer := &clientruntime.CertificateIssuer{
		BaseURL:  httpBaseURL,
		AuthCode: ccfg.AuthCode,
		Name:     name,
		HTTPClient: &http.Client{
			Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: gatewayTrust.Pool()}},
		},
	}

	runtime := clientruntime.New(clientruntime.Options{
		DialURL:      wsURL,
		GatewayTrust: gatewayTrust,
		ServerName:   ccfg.Host,
		Issuer:       issuer,

		RetryDelay:    ccfg.RetryDelay,
		RetryExponent: ccfg.RetryExponent,
		RetryMaxDelay: ccfg.RetryMaxDelay,

		HealthPeriod:  ccfg.HealthPeriod,
		HealthTimeout: ccfg.HealthTimeout,

		Logger: logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("remote client starting", "gateway", wsURL, "connections", connections)
	runtime.Spawn(ctx, connections)
	logger.Info("remote client stopped")
	return nil
}
