package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/vocdoni/crisp-ballot/config"
)

// Version is the build version, set at build time with -ldflags.
var Version = "dev"

// loadConfig loads configuration from flags, environment variables and
// defaults.
func loadConfig() (*config.Config, error) {
	v := viper.New()

	userHomeDir, err := os.UserHomeDir()
	if err != nil {
		userHomeDir = "."
	}
	def := config.Default(filepath.Join(userHomeDir, config.DefaultDatadir))

	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.output", def.Log.Output)
	v.SetDefault("bfv.degree", def.BFV.Degree)
	v.SetDefault("bfv.plaintextModulus", def.BFV.PlaintextModulus)
	v.SetDefault("bfv.moduli", def.BFV.Moduli)
	v.SetDefault("prover.workers", def.Prover.Workers)
	v.SetDefault("prover.verifySignature", def.Prover.VerifySignature)
	v.SetDefault("prover.cacheSize", def.Prover.CacheSize)
	v.SetDefault("prover.mode", def.Prover.Mode)
	v.SetDefault("db.type", def.DB.Type)
	v.SetDefault("census.maxDepth", def.Census.MaxDepth)
	v.SetDefault("census.voters", def.Census.Voters)
	v.SetDefault("census.file", def.Census.File)
	v.SetDefault("datadir", def.Datadir)

	flag.StringP("log.level", "l", def.Log.Level, "log level (debug, info, warn, error)")
	flag.StringP("log.output", "o", def.Log.Output, "log output (stdout, stderr or filepath)")
	flag.Int("bfv.degree", def.BFV.Degree, "BFV polynomial degree (plaintext slots)")
	flag.Uint64("bfv.plaintextModulus", def.BFV.PlaintextModulus, "BFV plaintext modulus")
	flag.StringSlice("bfv.moduli", moduliStrings(def.BFV.Moduli), "BFV RNS moduli, comma-separated")
	flag.IntP("prover.workers", "w", def.Prover.Workers, "concurrent proofs (0 uses all CPUs)")
	flag.Bool("prover.verifySignature", def.Prover.VerifySignature, "verify the ballot signature inside the circuit (disabling it makes proofs non-authorizing)")
	flag.Int("prover.cacheSize", def.Prover.CacheSize, "circuit variants kept in memory")
	flag.String("prover.mode", def.Prover.Mode, "ballot policy (governance or credits)")
	flag.String("db.type", def.DB.Type, "artifacts database (pebble or inmemory)")
	flag.Int("census.maxDepth", def.Census.MaxDepth, "maximum census tree depth")
	flag.Int("census.voters", def.Census.Voters, "number of generated voters in the census")
	flag.String("census.file", def.Census.File, "participant list (JSON or JSON lines) added to the census")
	flag.StringP("datadir", "d", def.Datadir, "data directory for the artifacts database")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "crisp-prover v%s\n\n", Version)
		fmt.Fprintf(os.Stderr, "Usage: crisp-prover [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEnvironment variables are also available with the same name as flags,\n")
		fmt.Fprintf(os.Stderr, "  except for dots (.) which are replaced by underscores (_).\n")
		fmt.Fprintf(os.Stderr, "  For example, CRISP_PROVER_WORKERS or CRISP_DB_TYPE\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  # Prove with small parameters and keep keys in memory\n")
		fmt.Fprintf(os.Stderr, "  crisp-prover --bfv.degree=32 --bfv.moduli=1073741441,1073740609 --db.type=inmemory\n")
	}

	flag.CommandLine.SortFlags = false
	flag.Parse()

	v.SetEnvPrefix("CRISP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(flag.CommandLine); err != nil {
		return nil, fmt.Errorf("error binding flags: %w", err)
	}

	cfg := &config.Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return cfg, nil
}

func moduliStrings(moduli []uint64) []string {
	out := make([]string, len(moduli))
	for i, q := range moduli {
		out[i] = strconv.FormatUint(q, 10)
	}
	return out
}
