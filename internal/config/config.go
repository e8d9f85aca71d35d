// Package config resolves per-repo storage locations and size-derived
// option bundles, and loads project-level overrides.
//
// Per-repo paths are derived by hashing the absolute project directory with
// SHA-256; sizing bundles are keyed by estimated lines of code. Project
// overrides come from a YAML file plus CODESCOPE_* environment variables.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the project-level configuration, loadable from
// .codescope/config.yml with CODESCOPE_* environment overrides.
type Config struct {
	Embedding Embedding `mapstructure:"embedding"`
	Chunking  Chunking  `mapstructure:"chunking"`
	Indexing  Indexing  `mapstructure:"indexing"`
	Search    Search    `mapstructure:"search"`
}

// Embedding controls the embedding adapter.
type Embedding struct {
	Dimensions int `mapstructure:"dimensions"`
	BatchSize  int `mapstructure:"batch_size"`
}

// Chunking controls the chunker.
type Chunking struct {
	OverlapPercentage float64 `mapstructure:"overlap_percentage"`
	SourceRoot        string  `mapstructure:"source_root"`
}

// Indexing controls the indexing pipeline.
type Indexing struct {
	MaxFileSizeBytes int64 `mapstructure:"max_file_size_bytes"`
}

// Search controls hybrid search defaults.
type Search struct {
	RRFK           float64 `mapstructure:"rrf_k"`
	LexicalWeight  float64 `mapstructure:"lexical_weight"`
	VectorWeight   float64 `mapstructure:"vector_weight"`
	CandidateCount int     `mapstructure:"candidate_count"`
}

// Default returns codescope's built-in defaults (RRF k=60, equal leg
// weights, 384-dim embeddings, 20% overlap).
func Default() *Config {
	return &Config{
		Embedding: Embedding{Dimensions: 384, BatchSize: 128},
		Chunking:  Chunking{OverlapPercentage: 0.2, SourceRoot: "src"},
		Indexing:  Indexing{MaxFileSizeBytes: 5 * 1024 * 1024},
		Search:    Search{RRFK: 60, LexicalWeight: 0.5, VectorWeight: 0.5, CandidateCount: 100},
	}
}

// Load reads configuration for the project rooted at rootDir: defaults,
// overridden by .codescope/config.yml, overridden by CODESCOPE_* env vars.
func Load(rootDir string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(filepath.Join(rootDir, ".codescope"))

	v.SetEnvPrefix("CODESCOPE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	defaults := Default()
	v.SetDefault("embedding.dimensions", defaults.Embedding.Dimensions)
	v.SetDefault("embedding.batch_size", defaults.Embedding.BatchSize)
	v.SetDefault("chunking.overlap_percentage", defaults.Chunking.OverlapPercentage)
	v.SetDefault("chunking.source_root", defaults.Chunking.SourceRoot)
	v.SetDefault("indexing.max_file_size_bytes", defaults.Indexing.MaxFileSizeBytes)
	v.SetDefault("search.rrf_k", defaults.Search.RRFK)
	v.SetDefault("search.lexical_weight", defaults.Search.LexicalWeight)
	v.SetDefault("search.vector_weight", defaults.Search.VectorWeight)
	v.SetDefault("search.candidate_count", defaults.Search.CandidateCount)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, nil
}

// ProjectHash is the hex SHA-256 digest of the absolute project directory,
// used to derive every per-repo storage path.
func ProjectHash(projectDir string) (string, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("config: resolve absolute path for %s: %w", projectDir, err)
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:]), nil
}

// Paths are the resolved on-disk locations for one project's derived state.
type Paths struct {
	CacheDir       string // metadata cache backend directory
	LexicalDir     string // bleve index directory
	VectorDir      string // chromem-go collection directory
	SnapshotPath   string // merkle snapshot file
	CollectionName string
}

// DataDir returns the per-user data directory root that all per-repo state
// lives under: $CODESCOPE_DATA_DIR if set, else os.UserHomeDir()/.codescope.
func DataDir() (string, error) {
	if dir := os.Getenv("CODESCOPE_DATA_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: resolve home directory: %w", err)
	}
	return filepath.Join(home, ".codescope"), nil
}

// ResolvePaths computes the per-repo storage layout for projectDir:
// cache/<hash>/, index/<hash>/, cache/<hash>/vectors/<collection>/, and
// merkle/<hash[:16]>.snapshot.
func ResolvePaths(projectDir string) (Paths, error) {
	dataDir, err := DataDir()
	if err != nil {
		return Paths{}, err
	}
	hash, err := ProjectHash(projectDir)
	if err != nil {
		return Paths{}, err
	}

	collection := fmt.Sprintf("code_chunks_%s", hash[:8])
	cacheDir := filepath.Join(dataDir, "cache", hash)

	return Paths{
		CacheDir:       cacheDir,
		LexicalDir:     filepath.Join(dataDir, "index", hash),
		VectorDir:      filepath.Join(cacheDir, "vectors", collection),
		SnapshotPath:   filepath.Join(dataDir, "merkle", hash[:16]+".snapshot"),
		CollectionName: collection,
	}, nil
}

// SizeBundle is LOC-class-derived sizing for the two store backends.
type SizeBundle struct {
	Class                    string
	LexicalMemoryMB          int
	VectorHNSWM              int // HNSW graph degree parameter
	VectorHNSWEFConstruction int
	ParseBatchSize           int
}

// bundles are pre-tabulated: small < 100k LOC, medium < 1M LOC,
// large >= 1M LOC.
var bundles = []struct {
	maxLOC int64
	bundle SizeBundle
}{
	{100_000, SizeBundle{Class: "small", LexicalMemoryMB: 64, VectorHNSWM: 16, VectorHNSWEFConstruction: 100, ParseBatchSize: 50}},
	{1_000_000, SizeBundle{Class: "medium", LexicalMemoryMB: 256, VectorHNSWM: 32, VectorHNSWEFConstruction: 200, ParseBatchSize: 100}},
}

var largeBundle = SizeBundle{Class: "large", LexicalMemoryMB: 1024, VectorHNSWM: 48, VectorHNSWEFConstruction: 400, ParseBatchSize: 100}

// BundleForLOC selects the sizing bundle for an estimated line count.
func BundleForLOC(estimatedLOC int64) SizeBundle {
	for _, b := range bundles {
		if estimatedLOC < b.maxLOC {
			return b.bundle
		}
	}
	return largeBundle
}
