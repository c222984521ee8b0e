package scale

import (
	"errors"
	"testing"
)

func TestDefaultOrder(t *testing.T) {
	want := []string{"mdpi", "hdpi", "xhdpi", "xxhdpi", "xxxhdpi"}
	got := Default()
	if len(got) != len(want) {
		t.Fatalf("got %d entries, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("entry %d = %q, want %q", i, got[i].Name, name)
		}
	}
	if got[1].Multiplier != 1.5 {
		t.Errorf("hdpi multiplier = %v, want 1.5", got[1].Multiplier)
	}
}

func TestParse(t *testing.T) {
	entries, err := Parse(" mdpi=1, hdpi = 1.5 ,xhdpi=2,")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[1].Name != "hdpi" || entries[1].Multiplier != 1.5 {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestParseRejects(t *testing.T) {
	cases := []string{
		"",
		"mdpi",
		"=1",
		"mdpi=abc",
		"mdpi=0",
		"mdpi=-1",
		"mdpi=NaN",
		"mdpi=Inf",
		"mdpi=1,mdpi=2",
	}
	for _, in := range cases {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidScale) {
			t.Errorf("Parse(%q) err = %v, want ErrInvalidScale", in, err)
		}
	}
}

func TestParseRejectsPathNames(t *testing.T) {
	for _, in := range []string{
		"../../etc=1",
		"..=1",
		".=1",
		"a/b=1",
		`a\b=2`,
		"mdpi=1,../x=2",
	} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalidScale) {
			t.Errorf("Parse(%q) err = %v, want ErrInvalidScale", in, err)
		}
	}
	if _, err := Parse("drawable.v2=1"); err != nil {
		t.Errorf("dots inside a name should be allowed: %v", err)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	s := Format(Default())
	if s != "mdpi=1,hdpi=1.5,xhdpi=2,xxhdpi=3,xxxhdpi=4" {
		t.Errorf("Format = %q", s)
	}
}
