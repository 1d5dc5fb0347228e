package domain

// ClientID is the stable identifier used as the connection registry key.
// It is always derived from the signed identity extension of the client's
// certificate, never from a path-supplied, unauthenticated value.
type ClientID string

// ClientName is the friendly name a client requests at certificate issuance
// time (the certificate's CommonName). The certificate authority stamps
// this same name as the signed extension's identity, so a client's
// ClientID equals its ClientName; uniqueness of names is not enforced.
type ClientName string
