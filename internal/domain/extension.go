package domain

import "encoding/asn1"

// SignedExtensionOID is the fixed OID carrying the signed identity
// extension on every leaf certificate issued by the certificate authority.
// It sits in a private-enterprise arc; it is not registered with IANA, but
// every verifier in this system agrees on the value, which is all the
// contract requires.
var SignedExtensionOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 57150, 1, 1}

// SignedExtension is the DER-encoded payload stored at SignedExtensionOID.
// It binds a leaf certificate to the issuer that vouched for its identity,
// independently of standard X.509 chain validation: SignerName identifies
// the issuer, Identity carries the ClientName the issuer attested to, and
// Signature is the issuer's signature over the canonicalized (SignerName,
// Identity) pair.
type SignedExtension struct {
	SignerName string
	Identity   string
	Signature  []byte
}

// SignedBytes returns the canonical bytes the issuer signs and the verifier
// re-derives independently of the wire encoding of SignedExtension itself.
func SignedBytes(signerName, identity string) []byte {
	canonical, err := asn1.Marshal(struct {
		SignerName string
		Identity   string
	}{signerName, identity})
	if err != nil {
		// Marshaling two strings cannot fail.
		panic(err)
	}
	return canonical
}

// Marshal DER-encodes the extension for storage in an X.509 extension value.
func (e SignedExtension) Marshal() ([]byte, error) {
	return asn1.Marshal(e)
}

// UnmarshalSignedExtension parses the DER-encoded extension value.
func UnmarshalSignedExtension(der []byte) (SignedExtension, error) {
	var ext SignedExtension
	rest, err := asn1.Unmarshal(der, &ext)
	if err != nil {
		return SignedExtension{}, err
	}
	if len(rest) != 0 {
		return SignedExtension{}, asn1.SyntaxError{Msg: "trailing data after signed extension"}
	}
	return ext, nil
}
