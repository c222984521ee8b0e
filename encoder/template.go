package encoder

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Slot identifies one of the three values substituted into a command
type Slot int

const (
	SlotNone Slot = iota
	SlotInput
	SlotSize
	SlotOutput
)

var slotMarkers = map[Slot]string{
	SlotInput:  "%INPUT%",
	SlotSize:   "%SIZE%",
	SlotOutput: "%OUTPUT%",
}

var (
	ErrEmptyTemplate = errors.New("empty command template")
	ErrMissingSlot   = errors.New("command template is missing a placeholder")
)

// segment is either literal text or a slot reference
type segment struct {
	text string
	slot Slot
}

// Template is a parsed command line: the binary followed by argument tokens,
// each token made of literal and slot segments.
type Template struct {
	raw    string
	binary string
	tokens [][]segment
}

// ParseTemplate parses a whitespace-separated command such as
// "inkscape %INPUT% --export-filename=%OUTPUT% -w %SIZE% -h %SIZE%".
// The first token is the executable and may not contain placeholders.
func ParseTemplate(command string) (Template, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return Template{}, ErrEmptyTemplate
	}
	if segs := splitToken(fields[0]); len(segs) != 1 || segs[0].slot != SlotNone {
		return Template{}, fmt.Errorf("command %q: executable may not be a placeholder", command)
	}

	t := Template{raw: command, binary: fields[0]}
	used := make(map[Slot]bool)
	for _, field := range fields[1:] {
		segs := splitToken(field)
		for _, s := range segs {
			used[s.slot] = true
		}
		t.tokens = append(t.tokens, segs)
	}

	for _, slot := range []Slot{SlotInput, SlotSize, SlotOutput} {
		if !used[slot] {
			return Template{}, fmt.Errorf("%w: %s in %q", ErrMissingSlot, slotMarkers[slot], command)
		}
	}
	return t, nil
}

// MustParseTemplate is ParseTemplate for the built-in defaults
func MustParseTemplate(command string) Template {
	t, err := ParseTemplate(command)
	if err != nil {
		panic(err)
	}
	return t
}

// splitToken breaks a token into literal text and slot markers
func splitToken(token string) []segment {
	var segs []segment
	for token != "" {
		pos, slot := -1, SlotNone
		for s, marker := range slotMarkers {
			if i := strings.Index(token, marker); i >= 0 && (pos < 0 || i < pos) {
				pos, slot = i, s
			}
		}
		if pos < 0 {
			segs = append(segs, segment{text: token})
			break
		}
		if pos > 0 {
			segs = append(segs, segment{text: token[:pos]})
		}
		segs = append(segs, segment{slot: slot})
		token = token[pos+len(slotMarkers[slot]):]
	}
	return segs
}

// Binary is the executable name, resolved against PATH before a run
func (t Template) Binary() string { return t.binary }

func (t Template) String() string { return t.raw }

// Args substitutes the three values literally and returns the argument list
// (excluding the binary). No shell quoting is applied.
func (t Template) Args(input string, size int, output string) []string {
	values := map[Slot]string{
		SlotInput:  input,
		SlotSize:   strconv.Itoa(size),
		SlotOutput: output,
	}
	args := make([]string, 0, len(t.tokens))
	for _, segs := range t.tokens {
		var b strings.Builder
		for _, s := range segs {
			if s.slot == SlotNone {
				b.WriteString(s.text)
			} else {
				b.WriteString(values[s.slot])
			}
		}
		args = append(args, b.String())
	}
	return args
}
