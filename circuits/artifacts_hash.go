package circuits

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/consensys/gnark/constraint"
)

// HashConstraintSystem returns the hex encoded SHA256 hash of a constraint
// system, used to detect stale persisted proving artifacts.
func HashConstraintSystem(cs constraint.ConstraintSystem) (string, error) {
	return hashWriterTo(cs)
}

// HashBytesSHA256 returns the hex encoded SHA256 hash of content.
func HashBytesSHA256(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

func hashWriterTo(w io.WriterTo) (string, error) {
	hasher := sha256.New()
	if _, err := w.WriteTo(hasher); err != nil {
		return "", fmt.Errorf("write artifact to hasher: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
