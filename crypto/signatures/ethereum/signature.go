// Package ethereum provides Ethereum ECDSA (secp256k1) signing, address
// recovery and the extraction of the fixed-width signature components that
// the ballot circuit consumes as public key, signature and message digest
// bytes.
package ethereum

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	// SignatureLength is the size of an ECDSA signature with its recovery
	// byte.
	SignatureLength = ethcrypto.SignatureLength
	// SignatureMinLength is the size of a signature without recovery byte.
	SignatureMinLength = SignatureLength - 1
	// SigningPrefix is the prefix added when hashing Ethereum messages.
	SigningPrefix = "\u0019Ethereum Signed Message:\n"
	// HashLength is the size of a keccak256 hash.
	HashLength = 32
)

// ErrSignature is returned for malformed or unrecoverable signatures.
var ErrSignature = errors.New("invalid signature")

// ECDSASignature represents an Ethereum ECDSA signature with R and S
// components and the public key recovery id.
type ECDSASignature struct {
	R        *big.Int `json:"r"`
	S        *big.Int `json:"s"`
	recovery byte
}

// New parses a 64 byte (R‖S) or 65 byte (R‖S‖V) signature. V may be given
// as 0..3 or in the legacy 27..30 form.
func New(signature []byte) (*ECDSASignature, error) {
	sig := new(ECDSASignature)
	if err := sig.SetBytes(signature); err != nil {
		return nil, err
	}
	return sig, nil
}

// SetBytes sets the signature from its binary form.
func (sig *ECDSASignature) SetBytes(signature []byte) error {
	switch len(signature) {
	case SignatureMinLength:
		sig.recovery = 0
	case SignatureLength:
		v := signature[64]
		if v >= 27 {
			v -= 27
		}
		if v > 3 {
			return fmt.Errorf("%w: recovery byte %d", ErrSignature, signature[64])
		}
		sig.recovery = v
	default:
		return fmt.Errorf("%w: length %d, expected %d or %d bytes",
			ErrSignature, len(signature), SignatureMinLength, SignatureLength)
	}
	sig.R = new(big.Int).SetBytes(signature[:32])
	sig.S = new(big.Int).SetBytes(signature[32:64])
	return nil
}

// Valid reports whether both R and S are set.
func (sig *ECDSASignature) Valid() bool {
	return sig.R != nil && sig.S != nil
}

// RS returns R‖S, each left padded to 32 bytes.
func (sig *ECDSASignature) RS() [SignatureMinLength]byte {
	var out [SignatureMinLength]byte
	sig.R.FillBytes(out[:32])
	sig.S.FillBytes(out[32:])
	return out
}

// Bytes returns R‖S‖V with V in 0..3, the form accepted by
// go-ethereum's SigToPub.
func (sig *ECDSASignature) Bytes() []byte {
	rs := sig.RS()
	return append(rs[:], sig.recovery)
}

// RecoverPublicKey recovers the uncompressed public key that signed
// message, hashed with the Ethereum prefix.
func (sig *ECDSASignature) RecoverPublicKey(message []byte) ([]byte, error) {
	if !sig.Valid() {
		return nil, fmt.Errorf("%w: missing R or S", ErrSignature)
	}
	pubKey, err := ethcrypto.Ecrecover(HashMessage(message), sig.Bytes())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignature, err)
	}
	return pubKey, nil
}

// Verify checks that sig is a signature of message produced by
// expectedAddress.
func (sig *ECDSASignature) Verify(message []byte, expectedAddress common.Address) bool {
	addr, err := AddrFromSignature(message, sig)
	if err != nil {
		return false
	}
	return addr == expectedAddress
}

// String returns a string representation of the signature.
func (sig *ECDSASignature) String() string {
	return fmt.Sprintf("R: %s, S: %s, Recovery: %d", sig.R.String(), sig.S.String(), sig.recovery)
}

// AddrFromSignature recovers the Ethereum address that signed message.
func AddrFromSignature(message []byte, sig *ECDSASignature) (common.Address, error) {
	if sig == nil {
		return common.Address{}, fmt.Errorf("%w: signature is nil", ErrSignature)
	}
	pubKey, err := sig.RecoverPublicKey(message)
	if err != nil {
		return common.Address{}, err
	}
	return common.BytesToAddress(ethcrypto.Keccak256(pubKey[1:])[12:]), nil
}
