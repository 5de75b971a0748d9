package deck

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// themeThreshold is how many cards of an archetype make it a deck theme.
const themeThreshold = 9

// Card is one card index entry.
type Card struct {
	Name       string   `yaml:"name"`
	Archetypes []string `yaml:"archetypes"`
	// Limit overrides Rules.MaxCopies (0 forbidden, 1 limited, 2 semi-limited).
	Limit *int `yaml:"limit"`
}

// CardIndex maps passcodes to names, archetypes and banlist limits.
type CardIndex struct {
	Cards map[uint32]Card `yaml:"cards"`
}

// LoadCardIndex reads a YAML card index. An empty path yields an empty index.
func LoadCardIndex(path string) (*CardIndex, error) {
	if path == "" {
		return &CardIndex{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card index: %w", err)
	}
	var idx CardIndex
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parse card index: %w", err)
	}
	return &idx, nil
}

// Name falls back to the passcode for unknown cards.
func (c *CardIndex) Name(code uint32) string {
	if card, ok := c.Cards[code]; ok && card.Name != "" {
		return card.Name
	}
	return strconv.FormatUint(uint64(code), 10)
}

func (c *CardIndex) Limit(code uint32, fallback int) int {
	if card, ok := c.Cards[code]; ok && card.Limit != nil {
		return *card.Limit
	}
	return fallback
}

// Themes returns the archetypes with more than themeThreshold cards across the
// main and extra deck, sorted by name.
func (c *CardIndex) Themes(record Record) []string {
	counts := make(map[string]int)
	for _, section := range [][]uint32{record.Main, record.Extra} {
		for _, code := range section {
			for _, a := range c.Cards[code].Archetypes {
				counts[a]++
			}
		}
	}
	var themes []string
	for a, n := range counts {
		if n > themeThreshold {
			themes = append(themes, a)
		}
	}
	sort.Strings(themes)
	return themes
}
