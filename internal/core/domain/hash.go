package domain

import (
	"crypto/md5" //nolint:gosec // change signal, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Hash algorithms understood by HashContent.
const (
	HashSHA256 = "sha256"
	HashMD5    = "md5"
)

// HashContent returns "algo:hex" for data. Unknown algorithms fall back
// to sha256.
func HashContent(data []byte, algo string) string {
	switch algo {
	case HashMD5:
		sum := md5.Sum(data) //nolint:gosec // see import
		return HashMD5 + ":" + hex.EncodeToString(sum[:])
	default:
		sum := sha256.Sum256(data)
		return HashSHA256 + ":" + hex.EncodeToString(sum[:])
	}
}

// HashAlgorithm returns the algorithm prefix of an "algo:hex" hash,
// or an empty string if the hash carries none.
func HashAlgorithm(hash string) string {
	algo, _, ok := strings.Cut(hash, ":")
	if !ok {
		return ""
	}
	return algo
}
