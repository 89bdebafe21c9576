package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Pairing codes avoid characters that are easy to misread (0/O, 1/I)
const pairingAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratePairingCode returns a cryptographically random code formatted XXXX-XXXX
func GeneratePairingCode() (string, error) {
	buf := make([]byte, 8)
	max := big.NewInt(int64(len(pairingAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		buf[i] = pairingAlphabet[n.Int64()]
	}
	return string(buf[:4]) + "-" + string(buf[4:]), nil
}
