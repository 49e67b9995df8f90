// Package random produces references that people read back to a cashier or
// type into a bank transfer form.
package random

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// charset leaves out 0, 1, I and O.
const charset = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

// StringSecure returns length characters drawn from charset by crypto/rand.
func StringSecure(length int) (string, error) {
	max := big.NewInt(int64(len(charset)))

	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}

// Reference returns prefix, a dash and length random characters, e.g.
// BT-7KQ2M9XH4C.
func Reference(prefix string, length int) (string, error) {
	s, err := StringSecure(length)
	if err != nil {
		return "", fmt.Errorf("generating %s reference: %w", prefix, err)
	}
	return prefix + "-" + s, nil
}
