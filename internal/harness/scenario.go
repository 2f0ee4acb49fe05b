package harness

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultStartTime is the wall clock a scenario starts at unless it sets
// start_time. Authorization timestamps derive from it, so traces are stable.
const DefaultStartTime = 1_700_000_000

// Scenario is a scripted ledger session: a list of player actions run
// against a fresh ledger, plus assertions on the final ranking state.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// StartTime is the initial wall clock in Unix seconds.
	StartTime int64 `yaml:"start_time,omitempty"`

	// Ledger overrides the default ledger settings.
	Ledger LedgerSettings `yaml:"ledger,omitempty"`

	// Players lists the aliases the flow may use. Each alias maps to a
	// fixed address, so scenarios never spell out hex.
	Players []string `yaml:"players"`

	// Flow is executed in order against one ledger.
	Flow []FlowStep `yaml:"flow"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// LedgerSettings mirrors the ledger config knobs a scenario may change.
type LedgerSettings struct {
	LegacySubmit    bool       `yaml:"legacy_submit,omitempty"`
	SignatureWindow string     `yaml:"signature_window,omitempty"`
	SkinMode        string     `yaml:"skin_mode,omitempty"`
	Skins           []SkinSpec `yaml:"skins,omitempty"`
}

// SkinSpec is one catalog entry.
type SkinSpec struct {
	ID    uint64 `yaml:"id"`
	Name  string `yaml:"name"`
	Price uint64 `yaml:"price,omitempty"`
}

// FlowStep is one action in the flow.
type FlowStep struct {
	// Action is one of the Action* constants.
	Action string `yaml:"action"`

	// Player is the alias acting in submit, authorize, legacy_submit and grant_skin.
	Player string `yaml:"player,omitempty"`

	// Score is the claimed score for submit, authorize and legacy_submit.
	Score uint64 `yaml:"score,omitempty"`

	// As saves the authorization used by submit or issued by authorize
	// under a name, so a later redeem step can present it again.
	As string `yaml:"as,omitempty"`

	// Token names a saved authorization (redeem).
	Token string `yaml:"token,omitempty"`

	// By is a Go duration for advance, e.g. "5m1s".
	By string `yaml:"by,omitempty"`

	// Skin and Payment are used by grant_skin.
	Skin    uint64 `yaml:"skin,omitempty"`
	Payment uint64 `yaml:"payment,omitempty"`

	// Expect validates the step's outcome. If nil the outcome is only traced.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// Flow actions.
const (
	ActionSubmit       = "submit"
	ActionAuthorize    = "authorize"
	ActionRedeem       = "redeem"
	ActionLegacySubmit = "legacy_submit"
	ActionAdvance      = "advance"
	ActionGrantSkin    = "grant_skin"
)

// Outcomes that are not error codes.
const (
	OutcomeCommitted    = "Committed"
	OutcomeAuthorized   = "Authorized"
	OutcomeAdvanced     = "Advanced"
	OutcomeGranted      = "Granted"
	OutcomeAlreadyOwned = "AlreadyOwned"
)

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Case is an Outcome* constant or a model error code such as "ScoreNotHigher".
	Case string `yaml:"case"`

	// Result is a subset match against the outcome details.
	Result map[string]any `yaml:"result,omitempty"`
}

// Assertion validates final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	Player string `yaml:"player,omitempty"`
	Skin   uint64 `yaml:"skin,omitempty"`
	Kind   string `yaml:"kind,omitempty"`

	// Count is used by player_count and event_count.
	Count int `yaml:"count,omitempty"`

	// Score is used by score_of.
	Score uint64 `yaml:"score,omitempty"`

	// Value is used by has_played and has_skin.
	Value bool `yaml:"value,omitempty"`

	// Offset and Limit are used by top_scores and players_page.
	Offset uint64 `yaml:"offset,omitempty"`
	Limit  uint64 `yaml:"limit,omitempty"`

	// Entries is the exact expected ranking for top_scores and players_page.
	Entries []RankEntry `yaml:"entries,omitempty"`

	// Error, if set, is the model error code the query must fail with.
	Error string `yaml:"error,omitempty"`
}

// RankEntry is one (player, score) row.
type RankEntry struct {
	Player string `yaml:"player"`
	Score  uint64 `yaml:"score"`
}

// Assertion types.
const (
	AssertPlayerCount = "player_count"
	AssertScoreOf     = "score_of"
	AssertHasPlayed   = "has_played"
	AssertTopScores   = "top_scores"
	AssertPlayersPage = "players_page"
	AssertHasSkin     = "has_skin"
	AssertEventCount  = "event_count"
	AssertAudit       = "audit"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML with strict field checking.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	if scenario.StartTime == 0 {
		scenario.StartTime = DefaultStartTime
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Ledger.SignatureWindow != "" {
		if _, err := time.ParseDuration(s.Ledger.SignatureWindow); err != nil {
			return fmt.Errorf("ledger.signature_window: %w", err)
		}
	}

	known := make(map[string]bool, len(s.Players))
	for i, p := range s.Players {
		if p == "" {
			return fmt.Errorf("players[%d]: alias is empty", i)
		}
		if known[p] {
			return fmt.Errorf("players[%d]: duplicate alias %q", i, p)
		}
		known[p] = true
	}

	tokens := make(map[string]bool)
	for i, step := range s.Flow {
		if err := validateStep(i, step, known, tokens); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, a, known); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(i int, step FlowStep, players, tokens map[string]bool) error {
	needPlayer := func() error {
		if !players[step.Player] {
			return fmt.Errorf("flow[%d]: unknown player %q", i, step.Player)
		}
		return nil
	}

	switch step.Action {
	case ActionSubmit, ActionAuthorize:
		if err := needPlayer(); err != nil {
			return err
		}
		if step.As != "" {
			tokens[step.As] = true
		}
		if step.Action == ActionAuthorize && step.As == "" {
			return fmt.Errorf("flow[%d]: authorize needs as", i)
		}
	case ActionLegacySubmit, ActionGrantSkin:
		if err := needPlayer(); err != nil {
			return err
		}
	case ActionRedeem:
		if !tokens[step.Token] {
			return fmt.Errorf("flow[%d]: token %q not issued by an earlier step", i, step.Token)
		}
	case ActionAdvance:
		if _, err := time.ParseDuration(step.By); err != nil {
			return fmt.Errorf("flow[%d]: advance: %w", i, err)
		}
	case "":
		return fmt.Errorf("flow[%d]: action is required", i)
	default:
		return fmt.Errorf("flow[%d]: unknown action %q", i, step.Action)
	}

	if step.Expect != nil && step.Expect.Case == "" {
		return fmt.Errorf("flow[%d].expect: case is required", i)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a Assertion, players map[string]bool) error {
	checkPlayer := func(alias string) error {
		if !players[alias] {
			return fmt.Errorf("assertions[%d]: unknown player %q", index, alias)
		}
		return nil
	}

	switch a.Type {
	case AssertScoreOf, AssertHasPlayed, AssertHasSkin:
		if err := checkPlayer(a.Player); err != nil {
			return err
		}
	case AssertTopScores, AssertPlayersPage:
		for _, e := range a.Entries {
			if err := checkPlayer(e.Player); err != nil {
				return err
			}
		}
	case AssertEventCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for event_count", index)
		}
	case AssertPlayerCount, AssertAudit:
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if a.Count < 0 {
		return fmt.Errorf("assertions[%d]: count must be non-negative", index)
	}
	return nil
}
