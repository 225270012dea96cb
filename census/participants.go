package census

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/crisp-ballot/types"
)

// DumpFormat is the encoding of a participant list.
type DumpFormat int

const (
	// JSONL holds one participant object per line and can be streamed.
	JSONL DumpFormat = iota
	// JSONArray holds all participants in a single JSON array.
	JSONArray
	// UnknownJSON is returned when the format cannot be detected.
	UnknownJSON
)

// String returns the string representation of the DumpFormat.
func (format DumpFormat) String() string {
	switch format {
	case JSONL:
		return "jsonl"
	case JSONArray:
		return "json"
	default:
		return "unknown"
	}
}

// Participant is an entry of the eligibility list.
type Participant struct {
	Address common.Address `json:"address"`
	Balance *types.BigInt  `json:"balance"`
}

// Leaf returns the tree leaf of the participant.
func (p Participant) Leaf() (*big.Int, error) {
	if p.Balance == nil {
		return nil, fmt.Errorf("%w: missing balance for %s", ErrInvalidLeaf, p.Address.Hex())
	}
	return LeafHash(p.Address, p.Balance.MathBigInt())
}

// Leaves hashes every participant, preserving order.
func Leaves(participants []Participant) ([]*big.Int, error) {
	leaves := make([]*big.Int, len(participants))
	for i, p := range participants {
		leaf, err := p.Leaf()
		if err != nil {
			return nil, fmt.Errorf("participant %d: %w", i, err)
		}
		leaves[i] = leaf
	}
	return leaves, nil
}

// ReadParticipants decodes a participant list, detecting whether it is a
// JSON array or JSON lines by its first non-space character.
func ReadParticipants(r io.Reader) ([]Participant, DumpFormat, error) {
	br := bufio.NewReader(r)
	format, err := detectFormat(br)
	if err != nil {
		return nil, UnknownJSON, err
	}
	dec := json.NewDecoder(br)
	switch format {
	case JSONArray:
		var participants []Participant
		if err := dec.Decode(&participants); err != nil {
			return nil, format, fmt.Errorf("decode %s participant list: %w", format, err)
		}
		return participants, format, nil
	default:
		var participants []Participant
		for {
			var p Participant
			if err := dec.Decode(&p); errors.Is(err, io.EOF) {
				return participants, format, nil
			} else if err != nil {
				return nil, format, fmt.Errorf("decode %s participant %d: %w", format, len(participants), err)
			}
			participants = append(participants, p)
		}
	}
}

func detectFormat(br *bufio.Reader) (DumpFormat, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return UnknownJSON, fmt.Errorf("detect participant list format: %w", err)
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		case '[':
			return JSONArray, br.UnreadByte()
		case '{':
			return JSONL, br.UnreadByte()
		default:
			return UnknownJSON, fmt.Errorf("unexpected character %q in participant list", b)
		}
	}
}
