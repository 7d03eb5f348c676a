// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"math/big"

	"github.com/samber/oops"
)

// generatedAlphabet avoids look-alike characters so mailed passwords can be
// typed back without confusion.
const generatedAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GeneratePassword returns a random password of length n.
func GeneratePassword(n int) (string, error) {
	if n <= 0 {
		return "", oops.Code("AUTH_PASSWORD_LENGTH").
			With("length", n).
			Errorf("generated password length must be positive")
	}

	limit := big.NewInt(int64(len(generatedAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", oops.Code("AUTH_PASSWORD_GENERATE_FAILED").Wrap(err)
		}
		out[i] = generatedAlphabet[idx.Int64()]
	}
	return string(out), nil
}
