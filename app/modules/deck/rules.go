package deck

import (
	"fmt"
	"sort"
)

// Rules are the deck construction limits.
type Rules struct {
	MainMin  int `yaml:"main_min"`
	MainMax  int `yaml:"main_max"`
	ExtraMax int `yaml:"extra_max"`
	SideMax  int `yaml:"side_max"`
	// MaxCopies applies to cards the index does not restrict further.
	MaxCopies int `yaml:"max_copies"`
}

// DefaultRules are the standard constructed limits.
var DefaultRules = Rules{MainMin: 40, MainMax: 60, ExtraMax: 15, SideMax: 15, MaxCopies: 3}

// Validate returns one message per violated rule; nil means legal.
func (r Rules) Validate(record Record, cards *CardIndex) []string {
	var errs []string
	if n := len(record.Main); n < r.MainMin {
		errs = append(errs, fmt.Sprintf("Main Deck too small! Should be at least %d, is %d!", r.MainMin, n))
	} else if n > r.MainMax {
		errs = append(errs, fmt.Sprintf("Main Deck too large! Should be at most %d, is %d!", r.MainMax, n))
	}
	if n := len(record.Extra); n > r.ExtraMax {
		errs = append(errs, fmt.Sprintf("Extra Deck too large! Should be at most %d, is %d!", r.ExtraMax, n))
	}
	if n := len(record.Side); n > r.SideMax {
		errs = append(errs, fmt.Sprintf("Side Deck too large! Should be at most %d, is %d!", r.SideMax, n))
	}

	counts := make(map[uint32]int)
	for _, section := range [][]uint32{record.Main, record.Extra, record.Side} {
		for _, c := range section {
			counts[c]++
		}
	}
	codes := make([]uint32, 0, len(counts))
	for c := range counts {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	for _, c := range codes {
		limit := cards.Limit(c, r.MaxCopies)
		if counts[c] > limit {
			errs = append(errs, fmt.Sprintf("Too many copies of %s! Should be at most %d, is %d.", cards.Name(c), limit, counts[c]))
		}
	}
	return errs
}
