package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const referenceAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateSecureToken returns a hex string built from n random bytes.
func GenerateSecureToken(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// GenerateOrderReference builds a display reference like KC-20260115-7QX2M9PA.
func GenerateOrderReference(now time.Time) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(referenceAlphabet)))
	for i := 0; i < 8; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(referenceAlphabet[n.Int64()])
	}
	return fmt.Sprintf("KC-%s-%s", now.Format("20060102"), sb.String()), nil
}
