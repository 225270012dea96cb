// Package config holds the settings of the ballot prover, their defaults and
// their validation.
package config

import (
	"fmt"
	"slices"

	"github.com/vocdoni/crisp-ballot/circuits/ballotproof"
	"github.com/vocdoni/crisp-ballot/crypto/bfv"
	"github.com/vocdoni/crisp-ballot/db"
	"github.com/vocdoni/crisp-ballot/log"
	"github.com/vocdoni/crisp-ballot/prover"
	"github.com/vocdoni/crisp-ballot/types/params"
	"github.com/vocdoni/crisp-ballot/vote"
)

// Defaults
const (
	DefaultLogLevel  = "info"
	DefaultLogOutput = "stdout"
	DefaultDatadir   = ".crisp"
	DefaultDBType    = db.TypePebble
	DefaultVoters    = 8
)

// Config holds the application configuration.
type Config struct {
	Log     LogConfig    `mapstructure:"log"`
	BFV     BFVConfig    `mapstructure:"bfv"`
	Prover  ProverConfig `mapstructure:"prover"`
	DB      DBConfig     `mapstructure:"db"`
	Census  CensusConfig `mapstructure:"census"`
	Datadir string       `mapstructure:"datadir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Output string `mapstructure:"output"`
}

// BFVConfig holds the encryption parameters.
type BFVConfig struct {
	Degree           int      `mapstructure:"degree"`
	PlaintextModulus uint64   `mapstructure:"plaintextModulus"`
	Moduli           []uint64 `mapstructure:"moduli"`
}

// ProverConfig holds the proving backend configuration.
type ProverConfig struct {
	Workers int `mapstructure:"workers"`
	// VerifySignature binds ballots to the slot owner inside the circuit.
	// Disabling it leaves census membership, which is public, as the only
	// check, so proofs no longer authorize the voter.
	VerifySignature bool   `mapstructure:"verifySignature"`
	CacheSize       int    `mapstructure:"cacheSize"`
	Mode            string `mapstructure:"mode"`
}

// DBConfig selects the artifact database.
type DBConfig struct {
	Type string `mapstructure:"type"`
}

// CensusConfig holds the census limits.
type CensusConfig struct {
	MaxDepth int `mapstructure:"maxDepth"`
	// Voters is the number of generated voters added to the census.
	Voters int `mapstructure:"voters"`
	// File is an optional participant list (JSON array or JSON lines)
	// loaded into the census next to the generated voters.
	File string `mapstructure:"file"`
}

// Default returns the default configuration rooted at datadir.
func Default(datadir string) *Config {
	moduli := make([]uint64, len(bfv.DefaultParams.Moduli))
	for i, q := range bfv.DefaultParams.Moduli {
		moduli[i] = q.Uint64()
	}
	return &Config{
		Log: LogConfig{Level: DefaultLogLevel, Output: DefaultLogOutput},
		BFV: BFVConfig{
			Degree:           bfv.DefaultParams.Degree,
			PlaintextModulus: bfv.DefaultParams.PlaintextModulus.Uint64(),
			Moduli:           moduli,
		},
		Prover: ProverConfig{
			Workers:         params.DefaultProverWorkers,
			VerifySignature: true,
			CacheSize:       prover.DefaultCacheSize,
			Mode:            vote.ModeGovernance.String(),
		},
		DB:      DBConfig{Type: DefaultDBType},
		Census:  CensusConfig{MaxDepth: params.MaxMerkleDepth, Voters: DefaultVoters},
		Datadir: datadir,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := c.Params(); err != nil {
		return err
	}
	if _, err := c.Mode(); err != nil {
		return err
	}
	if c.Prover.Workers < 0 {
		return fmt.Errorf("invalid prover workers %d", c.Prover.Workers)
	}
	if !slices.Contains([]string{db.TypePebble, db.TypeInMemory}, c.DB.Type) {
		return fmt.Errorf("invalid db type %q", c.DB.Type)
	}
	if c.DB.Type == db.TypePebble && c.Datadir == "" {
		return fmt.Errorf("datadir is required by the %s database", c.DB.Type)
	}
	if c.Census.MaxDepth <= 0 || c.Census.MaxDepth > params.MaxMerkleDepth {
		return fmt.Errorf("census max depth must be in [1, %d], got %d", params.MaxMerkleDepth, c.Census.MaxDepth)
	}
	if c.Census.Voters <= 0 || c.Census.Voters > 1<<c.Census.MaxDepth {
		return fmt.Errorf("census voters must be in [1, %d], got %d", 1<<c.Census.MaxDepth, c.Census.Voters)
	}
	return nil
}

// Params returns the BFV parameters.
func (c *Config) Params() (*bfv.Params, error) {
	return bfv.NewParams(c.BFV.Degree, c.BFV.PlaintextModulus, c.BFV.Moduli...)
}

// Mode returns the ballot policy.
func (c *Config) Mode() (vote.Mode, error) {
	for _, m := range []vote.Mode{vote.ModeGovernance, vote.ModeCredits} {
		if m.String() == c.Prover.Mode {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mode %q", vote.ErrInvalidParameters, c.Prover.Mode)
}

// CircuitOptions returns the ballot circuit options.
func (c *Config) CircuitOptions() (ballotproof.Options, error) {
	mode, err := c.Mode()
	if err != nil {
		return ballotproof.Options{}, err
	}
	return ballotproof.Options{VerifySignature: c.Prover.VerifySignature, Mode: mode}, nil
}
