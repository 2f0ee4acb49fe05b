package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/hiscore/internal/ethsig"
	"github.com/roach88/hiscore/internal/ledger"
	"github.com/roach88/hiscore/internal/model"
	"github.com/roach88/hiscore/internal/signer"
)

// EnvSignerKey overrides signer.private_key when set.
const EnvSignerKey = "SIGNER_PRIVATE_KEY"

// Config is the whole deployment configuration.
type Config struct {
	Signer SignerConfig `yaml:"signer" json:"signer"`
	Ledger LedgerConfig `yaml:"ledger" json:"ledger"`
	Skins  SkinsConfig  `yaml:"skins" json:"skins"`
}

// SignerConfig configures the authorization service.
type SignerConfig struct {
	PrivateKey     string   `yaml:"private_key" json:"private_key"`
	MaxScore       uint64   `yaml:"max_score" json:"max_score"`
	Expiry         string   `yaml:"expiry" json:"expiry"`
	Listen         string   `yaml:"listen" json:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins"`

	// RateLimit is authorize requests per second per process; 0 disables it.
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit"`
	Burst     int     `yaml:"burst" json:"burst"`
}

// LedgerConfig configures the ledger service and its store.
type LedgerConfig struct {
	DBPath string `yaml:"db_path" json:"db_path"`
	Listen string `yaml:"listen" json:"listen"`

	// TrustedSigner defaults to the address of signer.private_key.
	TrustedSigner   string `yaml:"trusted_signer" json:"trusted_signer"`
	SignatureWindow string `yaml:"signature_window" json:"signature_window"`
	LegacySubmit    bool   `yaml:"legacy_submit" json:"legacy_submit"`
}

// SkinsConfig is the skin catalog and unlock mode.
type SkinsConfig struct {
	Mode    string       `yaml:"mode" json:"mode"`
	Catalog []SkinConfig `yaml:"catalog" json:"catalog"`
}

// SkinConfig is one catalog entry.
type SkinConfig struct {
	ID    uint64 `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Price uint64 `yaml:"price" json:"price"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Signer: SignerConfig{
			MaxScore:       signer.DefaultMaxScore,
			Expiry:         signer.DefaultExpiry.String(),
			Listen:         ":8081",
			AllowedOrigins: []string{"http://localhost:3000"},
			RateLimit:      5,
			Burst:          10,
		},
		Ledger: LedgerConfig{
			DBPath:          "hiscore.db",
			Listen:          ":8080",
			SignatureWindow: ledger.DefaultSignatureWindow.String(),
		},
		Skins: SkinsConfig{
			Mode:    string(ledger.SkinModeClaim),
			Catalog: []SkinConfig{{ID: 1, Name: "jesse"}},
		},
	}
}

// Load reads path (if non-empty) over Default, applies the environment,
// and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decodeInto(cfg, data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key, ok := os.LookupEnv(EnvSignerKey); ok {
		cfg.Signer.PrivateKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes data over Default and validates it. The environment is
// not consulted.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := decodeInto(cfg, data); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeInto(cfg *Config, data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks cfg against the CUE schema, then the rules the schema
// cannot express.
func (c *Config) Validate() error {
	if err := checkSchema(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	settings, err := c.LedgerSettings()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	expiry, err := time.ParseDuration(c.Signer.Expiry)
	if err != nil {
		return fmt.Errorf("invalid config: signer.expiry: %w", err)
	}
	// The signer advertises expires_at; the ledger enforces the window.
	if expiry != settings.SignatureWindow {
		return fmt.Errorf("invalid config: signer.expiry %s must equal ledger.signature_window %s",
			expiry, settings.SignatureWindow)
	}
	return nil
}

// SignerExpiry returns signer.expiry as a duration.
func (c *Config) SignerExpiry() time.Duration {
	d, err := time.ParseDuration(c.Signer.Expiry)
	if err != nil {
		return signer.DefaultExpiry
	}
	return d
}

// NewSigner builds the signer service. A missing or malformed key yields an
// unconfigured signer, never an error, so the key is never echoed.
func (c *Config) NewSigner(logger *slog.Logger) *signer.Signer {
	if logger == nil {
		logger = slog.Default()
	}
	return signer.NewFromHex(c.Signer.PrivateKey,
		signer.WithMaxScore(c.Signer.MaxScore),
		signer.WithExpiry(c.SignerExpiry()),
		signer.WithLogger(logger),
	)
}

// LedgerSettings maps the file to ledger.Config.
func (c *Config) LedgerSettings() (ledger.Config, error) {
	out := ledger.DefaultConfig()
	out.LegacySubmit = c.Ledger.LegacySubmit
	out.SkinMode = ledger.SkinMode(c.Skins.Mode)

	window, err := time.ParseDuration(c.Ledger.SignatureWindow)
	if err != nil {
		return out, fmt.Errorf("ledger.signature_window: %w", err)
	}
	out.SignatureWindow = window

	trusted, err := c.trustedSigner()
	if err != nil {
		return out, err
	}
	out.TrustedSigner = trusted

	out.Skins = make([]ledger.Skin, len(c.Skins.Catalog))
	for i, s := range c.Skins.Catalog {
		out.Skins[i] = ledger.Skin{ID: s.ID, Name: s.Name, Price: s.Price}
	}

	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

func (c *Config) trustedSigner() (model.Address, error) {
	if c.Ledger.TrustedSigner != "" {
		addr, err := model.ParseAddress(c.Ledger.TrustedSigner)
		if err != nil {
			return model.Address{}, fmt.Errorf("ledger.trusted_signer: %w", err)
		}
		return addr, nil
	}
	if c.Signer.PrivateKey == "" {
		return model.Address{}, nil
	}
	key, err := ethsig.ParsePrivateKey(c.Signer.PrivateKey)
	if err != nil {
		// Reported by the signer at startup; the ledger stays unconfigured.
		return model.Address{}, nil
	}
	return ethsig.KeyAddress(key), nil
}
