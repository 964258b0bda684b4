package config

import (
	"crypto/tls"
	"fmt"
)

// Validate validates the TLS configuration
func (t TLSConfig) Validate() error {
	if err := validateTLSMode(t); err != nil {
		return err
	}
	return validateTLSVersion(t)
}

// Enabled reports whether the server terminates TLS itself
func (t TLSConfig) Enabled() bool {
	return t.Mode == "server"
}

// MinTLSVersion maps the configured minimum version to its crypto/tls constant
func (t TLSConfig) MinTLSVersion() uint16 {
	if t.MinVersion == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// validateTLSMode validates the TLS mode and associated requirements
func validateTLSMode(t TLSConfig) error {
	switch t.Mode {
	case "disabled":
		return nil
	case "server":
		if t.CertFile == "" || t.KeyFile == "" {
			return fmt.Errorf("TLS certificate and key files are required for server mode")
		}
		return nil
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", t.Mode)
	}
}

// validateTLSVersion validates the TLS version configuration
func validateTLSVersion(t TLSConfig) error {
	switch t.MinVersion {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
	}
}
