package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/ini.v1"
	"gopkg.in/yaml.v3"

	"blockvault/blockstore"
	"blockvault/logx"
)

// ProfileConfig describes one backup profile: the chain name shared by the
// three chains and where each chain lives.
type ProfileConfig struct {
	// Profile is the chain name, the storage namespace of this backup.
	Profile string `yaml:"profile"`

	// DataDir is the root under which the three chain directories live.
	DataDir string `yaml:"data_dir"`

	// VerifyMode selects strict (default) or lenient load verification.
	VerifyMode blockstore.VerifyMode `yaml:"verify_mode"`

	// Providers per chain; content and index default to per-block files,
	// access to the consolidated bolt file.
	ContentProvider blockstore.ProviderType `yaml:"content_provider"`
	AccessProvider  blockstore.ProviderType `yaml:"access_provider"`
	IndexProvider   blockstore.ProviderType `yaml:"index_provider"`
}

type profileFile struct {
	Ledger ProfileConfig `yaml:"ledger"`
}

// PowConfig tunes the admission gate.
type PowConfig struct {
	Difficulty    int `ini:"difficulty"`
	CheckInterval int `ini:"check_interval"`
}

// LoadProfileConfig reads and parses the profile .yml file
func LoadProfileConfig(path string) (*ProfileConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		logx.Error("CONFIG", fmt.Sprintf("failed to open profile config: %v", err))
		return nil, err
	}
	defer file.Close()

	var cfgFile profileFile
	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(&cfgFile); err != nil {
		logx.Error("CONFIG", fmt.Sprintf("failed to decode profile config: %v", err))
		return nil, err
	}
	cfg := cfgFile.Ledger
	if cfg.Profile == "" {
		cfg.Profile = "default"
	}
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("profile config %s: data_dir is required", path)
	}
	logx.Info("CONFIG", fmt.Sprintf("loaded profile %s with data dir %s", cfg.Profile, cfg.DataDir))
	return &cfg, nil
}

// LoadPowConfig reads admission tuning from the [pow] section of an .ini file
func LoadPowConfig(path string) (*PowConfig, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	powSection := cfg.Section("pow")
	powCfg := &PowConfig{}
	if err := powSection.MapTo(powCfg); err != nil {
		return nil, err
	}
	return powCfg, nil
}

// ContentChainConfig builds the content chain's store configuration.
func (c *ProfileConfig) ContentChainConfig(pow *PowConfig) blockstore.Config {
	return c.chainConfig("content", c.ContentProvider, pow)
}

// AccessChainConfig builds the access chain's store configuration. The
// provider is left empty when unset so the access ledger applies its
// consolidated-file default.
func (c *ProfileConfig) AccessChainConfig(pow *PowConfig) blockstore.Config {
	return c.chainConfig("access", c.AccessProvider, pow)
}

// IndexChainConfig builds the index chain's store configuration.
func (c *ProfileConfig) IndexChainConfig(pow *PowConfig) blockstore.Config {
	return c.chainConfig("index", c.IndexProvider, pow)
}

func (c *ProfileConfig) chainConfig(kind string, provider blockstore.ProviderType, pow *PowConfig) blockstore.Config {
	cfg := blockstore.Config{
		Name:       c.Profile,
		Dir:        filepath.Join(c.DataDir, kind),
		Provider:   provider,
		VerifyMode: c.VerifyMode,
	}
	if pow != nil {
		cfg.Difficulty = pow.Difficulty
		cfg.ProofCheckInterval = pow.CheckInterval
	}
	return cfg
}
