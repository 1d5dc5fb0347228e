package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGatewayConfig() FileConfig {
	var cfg FileConfig
	cfg.Host = "0.0.0.0"
	cfg.Port = 8443
	cfg.RootCA.CertFile = "/etc/trz/ca.pem"
	cfg.RootCA.KeyFile = "/etc/trz/ca-key.pem"
	cfg.TLS.CertFile = "/etc/trz/server.pem"
	cfg.TLS.KeyFile = "/etc/trz/server-key.pem"
	cfg.ClientCertificateIssuer = "primary-ca"
	return cfg
}

func TestValidateGateway(t *testing.T) {
	t.Parallel()

	t.Run("valid config", func(t *testing.T) {
		t.Parallel()
		got, err := ValidateGateway(validGatewayConfig(), false)
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", got.Host)
		assert.Equal(t, 8443, got.Port)
	})

	t.Run("defaults host and port when unset", func(t *testing.T) {
		t.Parallel()
		cfg := validGatewayConfig()
		cfg.Host = ""
		cfg.Port = 0
		got, err := ValidateGateway(cfg, true)
		require.NoError(t, err)
		assert.Equal(t, DefaultHost, got.Host)
		assert.Equal(t, DefaultPortDebug, got.Port)
	})

	t.Run("missing root ca", func(t *testing.T) {
		t.Parallel()
		cfg := validGatewayConfig()
		cfg.RootCA.CertFile = ""
		_, err := ValidateGateway(cfg, false)
		assert.ErrorContains(t, err, "root_ca")
	})

	t.Run("missing client_certificate_issuer", func(t *testing.T) {
		t.Parallel()
		cfg := validGatewayConfig()
		cfg.ClientCertificateIssuer = ""
		_, err := ValidateGateway(cfg, false)
		assert.ErrorContains(t, err, "client_certificate_issuer")
	})

	t.Run("port out of range", func(t *testing.T) {
		t.Parallel()
		cfg := validGatewayConfig()
		cfg.Port = 70000
		_, err := ValidateGateway(cfg, false)
		assert.ErrorContains(t, err, "port")
	})
}

func validClientConfig() FileConfig {
	var cfg FileConfig
	cfg.Host = "gateway.example.com"
	cfg.Port = 3001
	cfg.RootCA.CertFile = "/etc/trz/ca.pem"
	cfg.ClientCertificateIssuer = "primary-ca"
	cfg.AuthCode = "bootstrap-secret"
	return cfg
}

func TestValidateClientRuntime(t *testing.T) {
	t.Parallel()

	t.Run("valid config uses retry/health defaults", func(t *testing.T) {
		t.Parallel()
		got, err := ValidateClientRuntime(validClientConfig(), false)
		require.NoError(t, err)
		assert.Equal(t, DefaultRetryDelay, got.RetryDelay)
		assert.Equal(t, DefaultRetryExponent, got.RetryExponent)
		assert.Equal(t, DefaultRetryMaxDelay, got.RetryMaxDelay)
		assert.Equal(t, DefaultHealthPeriodRelease, got.HealthPeriod)
		assert.Equal(t, DefaultHealthTimeoutRel, got.HealthTimeout)
	})

	t.Run("debug defaults differ from release", func(t *testing.T) {
		t.Parallel()
		got, err := ValidateClientRuntime(validClientConfig(), true)
		require.NoError(t, err)
		assert.Equal(t, DefaultHealthPeriodDebug, got.HealthPeriod)
		assert.Equal(t, DefaultHealthTimeoutDebug, got.HealthTimeout)
	})

	t.Run("missing auth code", func(t *testing.T) {
		t.Parallel()
		cfg := validClientConfig()
		cfg.AuthCode = ""
		_, err := ValidateClientRuntime(cfg, false)
		assert.ErrorContains(t, err, "auth_code")
	})

	t.Run("missing host", func(t *testing.T) {
		t.Parallel()
		cfg := validClientConfig()
		cfg.Host = ""
		_, err := ValidateClientRuntime(cfg, false)
		assert.ErrorContains(t, err, "host")
	})

	t.Run("missing root ca cert file", func(t *testing.T) {
		t.Parallel()
		cfg := validClientConfig()
		cfg.RootCA.CertFile = ""
		_, err := ValidateClientRuntime(cfg, false)
		assert.ErrorContains(t, err, "root_ca")
	})

	t.Run("retry delay exceeding max_delay is rejected", func(t *testing.T) {
		t.Parallel()
		cfg := validClientConfig()
		cfg.Retry.Delay = "2m"
		cfg.Retry.MaxDelay = "1m"
		_, err := ValidateClientRuntime(cfg, false)
		assert.ErrorContains(t, err, "must not exceed")
	})

	t.Run("retry exponent must exceed one", func(t *testing.T) {
		t.Parallel()
		cfg := validClientConfig()
		cfg.Retry.Exponent = 1
		_, err := ValidateClientRuntime(cfg, false)
		assert.ErrorContains(t, err, "exponent")
	})

	t.Run("health timeout must be less than period", func(t *testing.T) {
		t.Parallel()
		cfg := validClientConfig()
		cfg.Health.Period = "1s"
		cfg.Health.Timeout = "1s"
		_, err := ValidateClientRuntime(cfg, false)
		assert.ErrorContains(t, err, "health.timeout")
	})

	t.Run("custom retry pacing parses", func(t *testing.T) {
		t.Parallel()
		cfg := validClientConfig()
		cfg.Retry.Delay = "500ms"
		cfg.Retry.MaxDelay = "30s"
		cfg.Retry.Exponent = 1.5
		got, err := ValidateClientRuntime(cfg, false)
		require.NoError(t, err)
		assert.Equal(t, 500*time.Millisecond, got.RetryDelay)
		assert.Equal(t, 30*time.Second, got.RetryMaxDelay)
		assert.Equal(t, 1.5, got.RetryExponent)
	})
}
