// Package domain holds the shared value types and sentinel errors of the
// tunnel gateway, independent of any transport or storage concern.
package domain

import "errors"

// Sentinel errors for the failure kinds enumerated by the certificate and
// tunnel lifecycle. Use errors.Is() for checking and fmt.Errorf("%w", ...)
// for wrapping with context.
var (
	ErrConfigInvalid    = errors.New("configuration is invalid")
	ErrTrustStoreBuild  = errors.New("failed to build trust store")
	ErrKeyGen           = errors.New("failed to generate key")
	ErrSignFailed       = errors.New("failed to sign certificate")
	ErrAuthRejected     = errors.New("auth code rejected")
	ErrHandshakeFailed  = errors.New("tls handshake failed")
	ErrExtensionMissing = errors.New("signed identity extension missing")
	ErrWrongSigner      = errors.New("signed identity extension names an unexpected signer")
	ErrSignatureInvalid = errors.New("signed identity extension signature is invalid")
	ErrTransportClosed  = errors.New("transport closed")
	ErrTimeout          = errors.New("operation timed out")
	ErrCancelled        = errors.New("operation cancelled")
	ErrNotRegistered    = errors.New("client has no live connections")
	ErrDuplicateShutdown = errors.New("server already shut down")
)
