// Package config loads and validates the gateway's YAML configuration
// file (spec.md §6): listen socket, root CA material, the gateway's
// own rotatable TLS identity, the expected signed-extension issuer,
// and the client runtime's retry/health pacing.
package config

// FileConfig is the on-disk shape of the gateway/client configuration
// file. A single schema serves both processes, matching the teacher's
// "single config file for both server and client" convention.
type FileConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	RootCA struct {
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"root_ca"`

	TLS struct {
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	} `yaml:"tls"`

	// ClientCertificateIssuer is the signer name the gateway and its
	// clients expect to find inside the signed identity extension.
	ClientCertificateIssuer string `yaml:"client_certificate_issuer"`

	// AuthCode is the client's one-shot bootstrap credential for
	// certificate issuance (spec.md §4.H Bootstrapping).
	AuthCode string `yaml:"auth_code"`

	Retry struct {
		Delay    string  `yaml:"delay"`
		Exponent float64 `yaml:"exponent"`
		MaxDelay string  `yaml:"max_delay"`
	} `yaml:"retry"`

	Health struct {
		Period  string `yaml:"period"`
		Timeout string `yaml:"timeout"`
	} `yaml:"health"`
}
