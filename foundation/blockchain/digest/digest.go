// Package digest provides the content hash used by every part of the
// blockchain: block headers, transactions and the merkle tree.
package digest

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ZeroHash is the previous hash recorded by the first block of a chain.
var ZeroHash = strings.Repeat("0", 64)

// Hash returns the hex rendering of the SHA3-512 digest of the JSON form
// of the value.
func Hash(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("marshal value: %w", err)
	}

	sum := sha3.Sum512(data)
	return Render(sum[:]), nil
}

// Render converts the digest to hex without zero padding each byte. A byte
// lower than 0x10 is written as a single digit, so the length of the result
// varies between 64 and 128 characters.
//
// The proof of work test slices this string by position, so the rendering
// is part of the consensus rules and must not be changed to %02x.
func Render(sum []byte) string {
	var b strings.Builder
	b.Grow(len(sum) * 2)

	for _, v := range sum {
		fmt.Fprintf(&b, "%x", v)
	}

	return b.String()
}
