package ethereum

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// SignatureComponents are the fixed-width byte sequences of an
// authorization signature, as exposed to the ballot circuit.
type SignatureComponents struct {
	MessageHash [HashLength]byte
	PublicKeyX  [32]byte
	PublicKeyY  [32]byte
	Signature   [SignatureMinLength]byte
}

// ExtractSignatureComponents hashes message with the Ethereum prefix,
// recovers the signer public key and returns its coordinates, R‖S and the
// digest as big-endian fixed-width arrays.
func ExtractSignatureComponents(signature, message []byte) (*SignatureComponents, error) {
	sig, err := New(signature)
	if err != nil {
		return nil, err
	}
	raw, err := sig.RecoverPublicKey(message)
	if err != nil {
		return nil, err
	}
	pubKey, err := ethcrypto.UnmarshalPubkey(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSignature, err)
	}
	x, overflow := uint256.FromBig(pubKey.X)
	if overflow {
		return nil, fmt.Errorf("%w: public key X overflows 256 bits", ErrSignature)
	}
	y, overflow := uint256.FromBig(pubKey.Y)
	if overflow {
		return nil, fmt.Errorf("%w: public key Y overflows 256 bits", ErrSignature)
	}
	comps := &SignatureComponents{
		PublicKeyX: x.Bytes32(),
		PublicKeyY: y.Bytes32(),
		Signature:  sig.RS(),
	}
	copy(comps.MessageHash[:], HashMessage(message))
	return comps, nil
}

// PublicKey returns the uncompressed (0x04‖X‖Y) public key.
func (c *SignatureComponents) PublicKey() []byte {
	out := make([]byte, 0, 65)
	out = append(out, 0x04)
	out = append(out, c.PublicKeyX[:]...)
	return append(out, c.PublicKeyY[:]...)
}

// Address derives the Ethereum address of the recovered public key.
func (c *SignatureComponents) Address() common.Address {
	return common.BytesToAddress(ethcrypto.Keccak256(c.PublicKey()[1:])[12:])
}

// Verify checks the signature against the digest and public key.
func (c *SignatureComponents) Verify() bool {
	return ethcrypto.VerifySignature(c.PublicKey(), c.MessageHash[:], c.Signature[:])
}
