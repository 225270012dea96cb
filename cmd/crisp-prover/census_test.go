package main

import (
	"os"
	"path/filepath"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/crisp-ballot/census"
	"github.com/vocdoni/crisp-ballot/types/params"
)

func TestBuildCensus(t *testing.T) {
	c := qt.New(t)
	signers, generated, err := demoCensus(3)
	c.Assert(err, qt.IsNil)
	c.Assert(signers, qt.HasLen, 3)
	c.Assert(generated[2].Balance.String(), qt.Equals, "30")

	leaves, tree, err := buildCensus("", generated)
	c.Assert(err, qt.IsNil)
	c.Assert(leaves, qt.HasLen, 3)

	file := filepath.Join(t.TempDir(), "census.jsonl")
	c.Assert(os.WriteFile(file, []byte(
		`{"address": "0x00000000000000000000000000000000000000aa", "balance": "10"}
{"address": "0x00000000000000000000000000000000000000bb", "balance": "20"}
`), 0o600), qt.IsNil)
	withFile, fileTree, err := buildCensus(file, generated)
	c.Assert(err, qt.IsNil)
	c.Assert(withFile, qt.HasLen, 5)
	c.Assert(fileTree.Root().Cmp(tree.Root()), qt.Not(qt.Equals), 0)

	// generated voters can still prove membership in the joined census
	last := generated[2]
	proof, err := census.GenerateMerkleProof(last.Balance.MathBigInt(), last.Address.Hex(), withFile, params.MaxMerkleDepth)
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Verify(), qt.IsTrue)
	c.Assert(proof.Root.Cmp(fileTree.Root()), qt.Equals, 0)

	_, _, err = buildCensus(filepath.Join(t.TempDir(), "missing.json"), generated)
	c.Assert(err, qt.IsNotNil)
}
