package deck

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

const ydkePrefix = "ydke://"

// ParseURL decodes a ydke:// URL: three base64 sections of little-endian uint32
// passcodes, each terminated by "!".
func ParseURL(url string) (Record, error) {
	if !strings.HasPrefix(url, ydkePrefix) {
		return Record{}, fmt.Errorf("unrecognized URL protocol: %q", url)
	}
	parts := strings.Split(strings.TrimPrefix(url, ydkePrefix), "!")
	if len(parts) < 3 {
		return Record{}, fmt.Errorf("missing ydke URL component: %q", url)
	}
	var sections [3][]uint32
	for i := 0; i < 3; i++ {
		codes, err := decodeSection(parts[i])
		if err != nil {
			return Record{}, fmt.Errorf("invalid ydke section %d: %w", i, err)
		}
		sections[i] = codes
	}
	return Record{Main: sections[0], Extra: sections[1], Side: sections[2]}, nil
}

func decodeSection(s string) ([]uint32, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("length %d is not a multiple of 4", len(raw))
	}
	codes := make([]uint32, 0, len(raw)/4)
	for i := 0; i < len(raw); i += 4 {
		codes = append(codes, binary.LittleEndian.Uint32(raw[i:i+4]))
	}
	return codes, nil
}

func encodeSection(codes []uint32) string {
	raw := make([]byte, 4*len(codes))
	for i, c := range codes {
		binary.LittleEndian.PutUint32(raw[4*i:], c)
	}
	return base64.StdEncoding.EncodeToString(raw)
}

// URL encodes the record as ydke://.
func (r Record) URL() string {
	return ydkePrefix + encodeSection(r.Main) + "!" + encodeSection(r.Extra) + "!" + encodeSection(r.Side) + "!"
}

// ParseYDK reads a .ydk file. Section headers are "#main", "#extra" and "!side";
// other "#" lines are comments.
func ParseYDK(ydk string) (Record, error) {
	var r Record
	section := ""
	lines := strings.FieldsFunc(ydk, func(c rune) bool { return c == '\n' || c == '\r' })
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			section = line[1:]
			continue
		}
		code, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			return Record{}, fmt.Errorf("invalid passcode %q: %w", line, err)
		}
		switch section {
		case "main":
			r.Main = append(r.Main, uint32(code))
		case "extra":
			r.Extra = append(r.Extra, uint32(code))
		case "side":
			r.Side = append(r.Side, uint32(code))
		}
	}
	return r, nil
}

// YDK renders the record as a .ydk file.
func (r Record) YDK() string {
	var b strings.Builder
	b.WriteString("#created by tourney-bot\n#main\n")
	for _, c := range r.Main {
		fmt.Fprintf(&b, "%d\n", c)
	}
	b.WriteString("#extra\n")
	for _, c := range r.Extra {
		fmt.Fprintf(&b, "%d\n", c)
	}
	b.WriteString("!side\n")
	for _, c := range r.Side {
		fmt.Fprintf(&b, "%d\n", c)
	}
	return b.String()
}
