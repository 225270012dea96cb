package ballotproof

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/emulated/sw_emulated"
	"github.com/consensys/gnark/std/hash/sha3"
	"github.com/consensys/gnark/std/math/emulated"
	"github.com/consensys/gnark/std/math/uints"
	"github.com/consensys/gnark/std/signature/ecdsa"
	"github.com/vocdoni/crisp-ballot/types/params"
)

// transcriptChunk is the number of values absorbed per hash call.
const transcriptChunk = 16

// challenge derives the evaluation point from the public key, the ballot
// ciphertext, the encryption randomness and the quotient polynomials. Values
// are absorbed in chunks: acc = H(acc, H(chunk)).
func (c *Circuit) challenge(api frontend.API) (frontend.Variable, error) {
	var transcript []frontend.Variable
	for i := range c.Params.Moduli {
		for _, poly := range [][]frontend.Variable{
			c.Pk0is[i], c.Pk1is[i], c.Ct0is[i], c.Ct1is[i],
			c.R1is[i], c.R2is[i], c.P1is[i], c.P2is[i],
		} {
			transcript = append(transcript, poly...)
		}
	}
	for _, poly := range [][]frontend.Variable{c.U, c.E0, c.E1, c.K1} {
		transcript = append(transcript, poly...)
	}

	var acc frontend.Variable
	for start := 0; start < len(transcript); start += transcriptChunk {
		h, err := HashFn(api, transcript[start:min(start+transcriptChunk, len(transcript))]...)
		if err != nil {
			return nil, fmt.Errorf("transcript chunk %d: %w", start/transcriptChunk, err)
		}
		if acc == nil {
			acc = h
			continue
		}
		if acc, err = HashFn(api, acc, h); err != nil {
			return nil, fmt.Errorf("transcript chain %d: %w", start/transcriptChunk, err)
		}
	}
	return acc, nil
}

// evaluationPowers returns 1, γ, ..., γ^(n-1).
func evaluationPowers(api frontend.API, gamma frontend.Variable, n int) []frontend.Variable {
	powers := make([]frontend.Variable, n)
	powers[0] = 1
	for j := 1; j < n; j++ {
		powers[j] = api.Mul(powers[j-1], gamma)
	}
	return powers
}

// evaluate returns Σ coeffs[j]·powers[j].
func evaluate(api frontend.API, powers, coeffs []frontend.Variable) frontend.Variable {
	acc := frontend.Variable(0)
	for j, coeff := range coeffs {
		acc = api.Add(acc, api.Mul(coeff, powers[j]))
	}
	return acc
}

// bytesToBits decomposes big-endian bytes into little-endian bits,
// constraining every value to a byte.
func bytesToBits(api frontend.API, b []frontend.Variable) []frontend.Variable {
	bits := make([]frontend.Variable, 0, 8*len(b))
	for i := len(b) - 1; i >= 0; i-- {
		bits = append(bits, api.ToBinary(b[i], 8)...)
	}
	return bits
}

// signature returns 1 when the ECDSA signature over hashed_message is valid
// for the public key and the key derives slot_address. With signature
// verification disabled it only constrains the byte inputs and returns 1.
func (c *Circuit) signature(api frontend.API) (frontend.Variable, error) {
	xBits := bytesToBits(api, c.PublicKeyX)
	yBits := bytesToBits(api, c.PublicKeyY)
	rBits := bytesToBits(api, c.Signature[:len(c.Signature)/2])
	sBits := bytesToBits(api, c.Signature[len(c.Signature)/2:])
	hBits := bytesToBits(api, c.HashedMessage)
	if !c.Options.VerifySignature {
		return 1, nil
	}

	fp, err := emulated.NewField[emulated.Secp256k1Fp](api)
	if err != nil {
		return nil, fmt.Errorf("secp256k1 base field: %w", err)
	}
	fr, err := emulated.NewField[emulated.Secp256k1Fr](api)
	if err != nil {
		return nil, fmt.Errorf("secp256k1 scalar field: %w", err)
	}
	pubKey := ecdsa.PublicKey[emulated.Secp256k1Fp, emulated.Secp256k1Fr]{
		X: *fp.FromBits(xBits...),
		Y: *fp.FromBits(yBits...),
	}
	sig := ecdsa.Signature[emulated.Secp256k1Fr]{
		R: *fr.FromBits(rBits...),
		S: *fr.FromBits(sBits...),
	}
	msg := fr.FromBits(hBits...)
	validSig := pubKey.IsValid(api, sw_emulated.GetCurveParams[emulated.Secp256k1Fp](), msg, &sig)

	derived, err := deriveAddress(api, c.PublicKeyX, c.PublicKeyY)
	if err != nil {
		return nil, fmt.Errorf("derive address: %w", err)
	}
	return api.Mul(validSig, api.IsZero(api.Sub(derived, c.SlotAddress))), nil
}

// deriveAddress packs the last 20 bytes of keccak256(X‖Y) into a single
// variable. x and y must already be constrained to bytes.
func deriveAddress(api frontend.API, x, y []frontend.Variable) (frontend.Variable, error) {
	uapi, err := uints.New[uints.U32](api)
	if err != nil {
		return nil, err
	}
	keccak, err := sha3.NewLegacyKeccak256(api)
	if err != nil {
		return nil, err
	}
	pubKey := make([]uints.U8, 0, len(x)+len(y))
	for _, b := range append(append([]frontend.Variable{}, x...), y...) {
		pubKey = append(pubKey, uapi.ByteValueOf(b))
	}
	keccak.Write(pubKey)
	digest := keccak.Sum()

	addr := frontend.Variable(0)
	for _, b := range digest[len(digest)-params.AddressLength:] {
		addr = api.Add(api.Mul(addr, 256), b.Val)
	}
	return addr, nil
}
