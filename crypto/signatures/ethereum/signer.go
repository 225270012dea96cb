package ethereum

import (
	"bytes"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/vocdoni/crisp-ballot/types"
)

// Signer is an ECDSA private key that signs Ethereum messages: the message
// is prefixed, hashed with keccak256 and the digest is signed.
type Signer ecdsa.PrivateKey

// NewSigner creates a random signer.
func NewSigner() (*Signer, error) {
	s, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	return (*Signer)(s), nil
}

// NewSignerFromHex creates a signer from a hex encoded private key.
func NewSignerFromHex(hexKey string) (*Signer, error) {
	s, err := ethcrypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("could not load key: %w", err)
	}
	return (*Signer)(s), nil
}

// NewSignerFromSeed derives a signer from the keccak256 hash of seed, so
// the same seed always yields the same key.
func NewSignerFromSeed(seed []byte) (*Signer, error) {
	s, err := ethcrypto.ToECDSA(ethcrypto.Keccak256(seed))
	if err != nil {
		return nil, fmt.Errorf("could not generate key: %w", err)
	}
	return (*Signer)(s), nil
}

// Address returns the Ethereum address of the signer.
func (s *Signer) Address() common.Address {
	return ethcrypto.PubkeyToAddress(s.PublicKey)
}

// HexPrivateKey returns the hex encoded private key.
func (s *Signer) HexPrivateKey() types.HexBytes {
	return types.HexBytes(ethcrypto.FromECDSA((*ecdsa.PrivateKey)(s)))
}

// Sign signs msg with the Ethereum message prefix.
func (s *Signer) Sign(msg []byte) (*ECDSASignature, error) {
	raw, err := ethcrypto.Sign(HashMessage(msg), (*ecdsa.PrivateKey)(s))
	if err != nil {
		return nil, fmt.Errorf("could not sign message: %w", err)
	}
	return New(raw)
}

// HashMessage performs a keccak256 hash over data with the Ethereum signed
// message prefix (EIP-191).
func HashMessage(data []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s%d%s", SigningPrefix, len(data), data)
	return HashRaw(buf.Bytes())
}

// HashRaw hashes data with no prefix using keccak256.
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}
