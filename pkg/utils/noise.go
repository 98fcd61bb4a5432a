package utils

import (
	"crypto/rand"
)

const noiseAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Noise returns a random alphanumeric string of the given length, suitable
// as padding that varies an encrypted response's ciphertext length from one
// request to the next without carrying any information itself.
func Noise(length int) string {
	out := make([]byte, length)
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	for i, b := range buf {
		out[i] = noiseAlphabet[int(b)%len(noiseAlphabet)]
	}
	return string(out)
}
