package config

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/db"
	"github.com/vocdoni/crisp-ballot/vote"
)

func TestDefault(t *testing.T) {
	c := qt.New(t)
	cfg := Default(t.TempDir())
	c.Assert(cfg.Validate(), qt.IsNil)

	p, err := cfg.Params()
	c.Assert(err, qt.IsNil)
	c.Assert(p.Fingerprint(), qt.Equals, bfv.DefaultParams.Fingerprint())

	opts, err := cfg.CircuitOptions()
	c.Assert(err, qt.IsNil)
	c.Assert(opts.Mode, qt.Equals, vote.ModeGovernance)
	c.Assert(opts.VerifySignature, qt.IsTrue)
}

func TestValidate(t *testing.T) {
	c := qt.New(t)
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(cfg *Config) { cfg.Log.Level = "loud" }},
		{"odd degree", func(cfg *Config) { cfg.BFV.Degree = 511 }},
		{"no moduli", func(cfg *Config) { cfg.BFV.Moduli = nil }},
		{"mode", func(cfg *Config) { cfg.Prover.Mode = "quadratic" }},
		{"workers", func(cfg *Config) { cfg.Prover.Workers = -1 }},
		{"db type", func(cfg *Config) { cfg.DB.Type = "mongodb" }},
		{"datadir", func(cfg *Config) { cfg.Datadir = "" }},
		{"depth", func(cfg *Config) { cfg.Census.MaxDepth = 21 }},
		{"voters", func(cfg *Config) { cfg.Census.MaxDepth, cfg.Census.Voters = 2, 5 }},
	} {
		c.Run(tc.name, func(c *qt.C) {
			cfg := Default(t.TempDir())
			tc.mutate(cfg)
			c.Assert(cfg.Validate(), qt.IsNotNil)
		})
	}

	cfg := Default("")
	cfg.DB.Type = db.TypeInMemory
	cfg.Prover.Mode = vote.ModeCredits.String()
	c.Assert(cfg.Validate(), qt.IsNil)
}
