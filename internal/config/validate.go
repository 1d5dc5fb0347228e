package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults for the listen socket and client backoff/health pacing
// (spec.md §6 config table).
const (
	DefaultHost = "127.0.0.1"

	DefaultPortDebug   = 3000
	DefaultPortRelease = 3001

	DefaultRetryDelay    = time.Second
	DefaultRetryExponent = 2.0
	DefaultRetryMaxDelay = 60 * time.Second

	DefaultHealthPeriodDebug   = 10 * time.Second
	DefaultHealthPeriodRelease = 3*time.Minute + 45*time.Second
	DefaultHealthTimeoutDebug  = 2 * time.Second
	DefaultHealthTimeoutRel    = 5 * time.Second
)

// GatewayConfig is the parsed, validated configuration needed to run
// the gateway side: listen socket, root CA material paths, the
// gateway's own TLS material paths, and the expected signer name.
type GatewayConfig struct {
	Host                    string
	Port                    int
	RootCACertFile          string
	RootCAKeyFile           string
	TLSCertFile             string
	TLSKeyFile              string
	ClientCertificateIssuer string
}

// ClientRuntimeConfig is the parsed, validated configuration needed to
// run the client runtime: where to dial, the bootstrap auth code, and
// backoff/health pacing (spec.md §4.H).
type ClientRuntimeConfig struct {
	Host                    string
	Port                    int
	RootCACertFile          string
	ClientCertificateIssuer string
	AuthCode                string

	RetryDelay    time.Duration
	RetryExponent float64
	RetryMaxDelay time.Duration

	HealthPeriod  time.Duration
	HealthTimeout time.Duration
}

// ValidateGateway validates cfg for use by the gateway process.
func ValidateGateway(cfg FileConfig, debug bool) (GatewayConfig, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		host = DefaultHost
	}

	port := cfg.Port
	if port == 0 {
		if debug {
			port = DefaultPortDebug
		} else {
			port = DefaultPortRelease
		}
	}
	if port < 0 || port > 65535 {
		return GatewayConfig{}, fmt.Errorf("port out of range: %d", port)
	}

	if strings.TrimSpace(cfg.RootCA.CertFile) == "" || strings.TrimSpace(cfg.RootCA.KeyFile) == "" {
		return GatewayConfig{}, errors.New("root_ca.cert_file and root_ca.key_file must be set")
	}
	if strings.TrimSpace(cfg.TLS.CertFile) == "" || strings.TrimSpace(cfg.TLS.KeyFile) == "" {
		return GatewayConfig{}, errors.New("tls.cert_file and tls.key_file must be set")
	}

	issuer := strings.TrimSpace(cfg.ClientCertificateIssuer)
	if issuer == "" {
		return GatewayConfig{}, errors.New("client_certificate_issuer must be set")
	}

	return GatewayConfig{
		Host:                    host,
		Port:                    port,
		RootCACertFile:          cfg.RootCA.CertFile,
		RootCAKeyFile:           cfg.RootCA.KeyFile,
		TLSCertFile:             cfg.TLS.CertFile,
		TLSKeyFile:              cfg.TLS.KeyFile,
		ClientCertificateIssuer: issuer,
	}, nil
}

// ValidateClientRuntime validates cfg for use by the remote client
// runtime.
func ValidateClientRuntime(cfg FileConfig, debug bool) (ClientRuntimeConfig, error) {
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return ClientRuntimeConfig{}, errors.New("host must be set")
	}

	port := cfg.Port
	if port == 0 {
		if debug {
			port = DefaultPortDebug
		} else {
			port = DefaultPortRelease
		}
	}

	rootCACertFile := strings.TrimSpace(cfg.RootCA.CertFile)
	if rootCACertFile == "" {
		return ClientRuntimeConfig{}, errors.New("root_ca.cert_file must be set")
	}

	issuer := strings.TrimSpace(cfg.ClientCertificateIssuer)
	if issuer == "" {
		return ClientRuntimeConfig{}, errors.New("client_certificate_issuer must be set")
	}

	authCode := strings.TrimSpace(cfg.AuthCode)
	if authCode == "" {
		return ClientRuntimeConfig{}, errors.New("auth_code must be set")
	}

	delay, err := parseDurationOrDefault(cfg.Retry.Delay, DefaultRetryDelay, "retry.delay")
	if err != nil {
		return ClientRuntimeConfig{}, err
	}
	maxDelay, err := parseDurationOrDefault(cfg.Retry.MaxDelay, DefaultRetryMaxDelay, "retry.max_delay")
	if err != nil {
		return ClientRuntimeConfig{}, err
	}
	if delay > maxDelay {
		return ClientRuntimeConfig{}, fmt.Errorf("retry.delay (%s) must not exceed retry.max_delay (%s)", delay, maxDelay)
	}

	exponent := cfg.Retry.Exponent
	if exponent == 0 {
		exponent = DefaultRetryExponent
	}
	if exponent <= 1 {
		return ClientRuntimeConfig{}, fmt.Errorf("retry.exponent must be greater than 1, got %v", exponent)
	}

	defaultPeriod, defaultTimeout := DefaultHealthPeriodRelease, DefaultHealthTimeoutRel
	if debug {
		defaultPeriod, defaultTimeout = DefaultHealthPeriodDebug, DefaultHealthTimeoutDebug
	}
	period, err := parseDurationOrDefault(cfg.Health.Period, defaultPeriod, "health.period")
	if err != nil {
		return ClientRuntimeConfig{}, err
	}
	timeout, err := parseDurationOrDefault(cfg.Health.Timeout, defaultTimeout, "health.timeout")
	if err != nil {
		return ClientRuntimeConfig{}, err
	}
	if timeout >= period {
		return ClientRuntimeConfig{}, fmt.Errorf("health.timeout (%s) must be less than health.period (%s)", timeout, period)
	}

	return ClientRuntimeConfig{
		Host:                    host,
		Port:                    port,
		RootCACertFile:          rootCACertFile,
		ClientCertificateIssuer: issuer,
		AuthCode:                authCode,
		RetryDelay:              delay,
		RetryExponent:           exponent,
		RetryMaxDelay:           maxDelay,
		HealthPeriod:            period,
		HealthTimeout:           timeout,
	}, nil
}

func parseDurationOrDefault(raw string, fallback time.Duration, field string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %q", field, raw)
	}
	return d, nil
}
