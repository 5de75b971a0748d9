// Package deck parses and validates submitted deck lists.
//
// A deck arrives either as a ydke:// URL in the message text or as an attached
// .ydk file. Both are normalised to the same record and stored by URL.
package deck

import (
	"errors"
	"regexp"
	"strings"
)

// ErrDeckNotFound means the message carried neither a .ydk file nor a ydke:// URL.
var ErrDeckNotFound = errors.New("Must provide either attached `.ydk` file or valid `ydke://` URL!")

var ydkeRegexp = regexp.MustCompile(`ydke://[A-Za-z0-9+/=]*?![A-Za-z0-9+/=]*?![A-Za-z0-9+/=]*?!`)

// Record is the raw list of passcodes per section.
type Record struct {
	Main  []uint32
	Extra []uint32
	Side  []uint32
}

// Deck is a parsed record with its derived views.
type Deck struct {
	Record
	URL              string
	YDK              string
	Themes           []string
	ValidationErrors []string

	names map[uint32]string
}

// File is an inbound attachment.
type File struct {
	Filename string
	Content  []byte
}

// Parser builds decks against a card index.
type Parser struct {
	cards *CardIndex
	rules Rules
}

// NewParser returns a Parser. A nil index disables names, limits and themes.
func NewParser(cards *CardIndex, rules Rules) *Parser {
	if cards == nil {
		cards = &CardIndex{}
	}
	return &Parser{cards: cards, rules: rules}
}

// FromMessage extracts a deck from a message: a .ydk attachment wins over a URL
// in the text.
func (p *Parser) FromMessage(content string, files []File) (*Deck, error) {
	for _, f := range files {
		if strings.HasSuffix(strings.ToLower(f.Filename), ".ydk") {
			return p.FromYDK(string(f.Content))
		}
	}
	url := ydkeRegexp.FindString(content)
	if url == "" {
		return nil, ErrDeckNotFound
	}
	return p.FromURL(url)
}

// FromURL parses a ydke:// URL.
func (p *Parser) FromURL(url string) (*Deck, error) {
	record, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	return p.build(record), nil
}

// FromYDK parses the contents of a .ydk file.
func (p *Parser) FromYDK(ydk string) (*Deck, error) {
	record, err := ParseYDK(ydk)
	if err != nil {
		return nil, err
	}
	return p.build(record), nil
}

func (p *Parser) build(record Record) *Deck {
	d := &Deck{
		Record: record,
		URL:    record.URL(),
		YDK:    record.YDK(),
		names:  make(map[uint32]string),
	}
	for _, section := range [][]uint32{record.Main, record.Extra, record.Side} {
		for _, code := range section {
			if _, ok := d.names[code]; !ok {
				d.names[code] = p.cards.Name(code)
			}
		}
	}
	d.Themes = p.cards.Themes(record)
	d.ValidationErrors = p.rules.Validate(record, p.cards)
	return d
}

// Legal reports whether the deck passed validation.
func (d *Deck) Legal() bool {
	return len(d.ValidationErrors) == 0
}

// ThemeLabel joins the themes for reports.
func (d *Deck) ThemeLabel() string {
	if len(d.Themes) == 0 {
		return "No themes"
	}
	return strings.Join(d.Themes, "/")
}
