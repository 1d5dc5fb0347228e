package ca

import "encoding/pem"

// EncodeCertificatePEM PEM-encodes a single DER certificate, the response
// body of POST /remote/certificate (spec.md §6).
func EncodeCertificatePEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}
