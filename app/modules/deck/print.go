package deck

import (
	"fmt"
	"strings"
)

// SectionText lists each distinct card of a section with its count, in order of
// first appearance.
func (d *Deck) SectionText(codes []uint32) string {
	counts := make(map[uint32]int)
	var order []uint32
	for _, c := range codes {
		if counts[c] == 0 {
			order = append(order, c)
		}
		counts[c]++
	}
	lines := make([]string, 0, len(order))
	for _, c := range order {
		lines = append(lines, fmt.Sprintf("%d %s", counts[c], d.name(c)))
	}
	return strings.Join(lines, "\n")
}

func (d *Deck) name(code uint32) string {
	if n, ok := d.names[code]; ok {
		return n
	}
	return fmt.Sprintf("%d", code)
}

// Summary renders the deck as one line per section, for spreadsheets.
func (d *Deck) Summary() string {
	return strings.ReplaceAll(fmt.Sprintf("Main: %s, Extra: %s, Side: %s",
		d.SectionText(d.Main), d.SectionText(d.Extra), d.SectionText(d.Side)), "\n", ", ")
}

// PrettyPrint renders the deck for chat and returns the .ydk file to attach.
func (d *Deck) PrettyPrint(filename string) (string, File) {
	var b strings.Builder
	fmt.Fprintf(&b, "__**Main Deck**__ (%d cards)\n%s\n", len(d.Main), d.SectionText(d.Main))
	if len(d.Extra) > 0 {
		fmt.Fprintf(&b, "__**Extra Deck**__ (%d cards)\n%s\n", len(d.Extra), d.SectionText(d.Extra))
	}
	if len(d.Side) > 0 {
		fmt.Fprintf(&b, "__**Side Deck**__ (%d cards)\n%s\n", len(d.Side), d.SectionText(d.Side))
	}
	if len(d.Themes) > 0 {
		fmt.Fprintf(&b, "**Themes:** %s\n", strings.Join(d.Themes, ", "))
	}
	if len(d.ValidationErrors) > 0 {
		b.WriteString("__**Deck is illegal!**__\n")
		for _, e := range d.ValidationErrors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
	}
	b.WriteString(d.URL)
	return b.String(), File{Filename: filename, Content: []byte(d.YDK)}
}
