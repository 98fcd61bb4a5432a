package core

import "math/big"

// SignatureToDecimal renders a raw 256-byte big-endian signature as the
// decimal big-integer string used on the wire in JSON transaction bodies and
// the Sig-Sample header.
func SignatureToDecimal(signature [signatureSize]byte) string {
	return new(big.Int).SetBytes(signature[:]).String()
}

// SignatureFromDecimal parses a decimal big-integer string back into the
// fixed 256-byte big-endian form. It fails if the value doesn't fit.
func SignatureFromDecimal(decimal string) ([signatureSize]byte, bool) {
	var out [signatureSize]byte
	n, ok := new(big.Int).SetString(decimal, 10)
	if !ok || n.Sign() < 0 {
		return out, false
	}
	b := n.Bytes()
	if len(b) > len(out) {
		return out, false
	}
	copy(out[len(out)-len(b):], b)
	return out, true
}
