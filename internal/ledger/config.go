package ledger

import (
	"fmt"
	"time"

	"github.com/roach88/hiscore/internal/model"
)

// SkinMode selects how skins are unlocked.
type SkinMode string

const (
	// SkinModeClaim grants catalog skins for free.
	SkinModeClaim SkinMode = "claim"
	// SkinModePurchase requires Payment >= Skin.Price.
	SkinModePurchase SkinMode = "purchase"
)

// DefaultSignatureWindow is how long an authorization stays redeemable.
const DefaultSignatureWindow = 5 * time.Minute

// Skin is one catalog entry.
type Skin struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Price uint64 `json:"price"`
}

// Config holds the ledger's deployment-time settings.
type Config struct {
	// TrustedSigner is the only address whose authorizations are accepted.
	// The zero address means no signer is configured.
	TrustedSigner model.Address

	// SignatureWindow bounds now - Authorization.Timestamp.
	SignatureWindow time.Duration

	// LegacySubmit admits submissions that carry no authorization.
	LegacySubmit bool

	SkinMode SkinMode
	Skins    []Skin
}

// DefaultConfig returns the settings of a free-claim deployment with the
// single launch skin.
func DefaultConfig() Config {
	return Config{
		SignatureWindow: DefaultSignatureWindow,
		SkinMode:        SkinModeClaim,
		Skins:           []Skin{{ID: 1, Name: "jesse"}},
	}
}

// Validate checks the config for values the ledger cannot run with.
// A zero TrustedSigner is allowed; authenticated submissions then fail
// with SignerNotConfigured.
func (c Config) Validate() error {
	if c.SignatureWindow <= 0 {
		return fmt.Errorf("signature window must be positive, got %s", c.SignatureWindow)
	}
	switch c.SkinMode {
	case SkinModeClaim, SkinModePurchase:
	default:
		return fmt.Errorf("unknown skin mode %q", c.SkinMode)
	}
	seen := make(map[uint64]bool, len(c.Skins))
	for _, s := range c.Skins {
		if seen[s.ID] {
			return fmt.Errorf("duplicate skin id %d", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}
