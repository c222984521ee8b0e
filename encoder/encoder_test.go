package encoder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"pixscale/models"
)

// writeScript creates an executable shell script used as a fake converter
func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script converters need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "fakeconv")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func newTestInvoker(t *testing.T, command string) *Invoker {
	t.Helper()
	tmpl, err := ParseTemplate(command)
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	return &Invoker{templates: map[string]Template{"svg": tmpl}}
}

func TestParseTemplateArgs(t *testing.T) {
	tmpl, err := ParseTemplate("inkscape %INPUT% --export-filename=%OUTPUT% -w %SIZE% -h %SIZE%")
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	if tmpl.Binary() != "inkscape" {
		t.Errorf("Binary = %q", tmpl.Binary())
	}

	got := tmpl.Args("/in/icon.svg", 72, "/out/drawable-hdpi/icon.png")
	want := []string{"/in/icon.svg", "--export-filename=/out/drawable-hdpi/icon.png", "-w", "72", "-h", "72"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("Args = %q, want %q", got, want)
	}
}

func TestParseTemplateMultipleSlotsInToken(t *testing.T) {
	tmpl := MustParseTemplate("magick %INPUT% -resize %SIZE%x%SIZE% png:%OUTPUT%")
	got := tmpl.Args("a.pdf", 96, "b.png")
	if got[2] != "96x96" || got[3] != "png:b.png" {
		t.Errorf("Args = %q", got)
	}
}

func TestParseTemplateLiteralSubstitution(t *testing.T) {
	tmpl := MustParseTemplate("conv %INPUT% %SIZE% %OUTPUT%")
	got := tmpl.Args("/dir with %SIZE%/x.svg", 10, "o.png")
	if got[0] != "/dir with %SIZE%/x.svg" {
		t.Errorf("input value was rescanned for placeholders: %q", got[0])
	}
}

func TestParseTemplateErrors(t *testing.T) {
	cases := map[string]error{
		"":                            ErrEmptyTemplate,
		"   ":                         ErrEmptyTemplate,
		"conv %INPUT% %OUTPUT%":       ErrMissingSlot,
		"conv %SIZE% %OUTPUT%":        ErrMissingSlot,
		"conv %INPUT% %SIZE%":         ErrMissingSlot,
		"conv %INPUT% %SIZE% %OUTPUT": ErrMissingSlot,
	}
	for in, want := range cases {
		if _, err := ParseTemplate(in); !errors.Is(err, want) {
			t.Errorf("ParseTemplate(%q) err = %v, want %v", in, err, want)
		}
	}
	if _, err := ParseTemplate("%INPUT% %SIZE% %OUTPUT%"); err == nil {
		t.Error("expected error for placeholder as executable")
	}
}

func TestDefaultTemplatesParse(t *testing.T) {
	r := NewRegistry()
	for _, ft := range []string{"svg", "pdf", "eps"} {
		if _, ok := r.Template(ft); !ok {
			t.Errorf("missing default template for %s", ft)
		}
	}
}

func TestResolveChecksPath(t *testing.T) {
	r := NewRegistry()
	r.lookPath = func(name string) (string, error) {
		if name == "inkscape" {
			return "/usr/bin/inkscape", nil
		}
		return "", errors.New("not found")
	}

	if _, err := r.Resolve("SVG"); err != nil {
		t.Errorf("Resolve(svg): %v", err)
	}
	if _, err := r.Resolve("pdf"); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("Resolve(pdf) err = %v, want ErrBinaryNotFound", err)
	}
	if _, err := r.Resolve("tiff"); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Resolve(tiff) err = %v, want ErrUnsupportedType", err)
	}
	if _, err := r.NewInvoker("svg", "pdf"); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("NewInvoker err = %v, want ErrBinaryNotFound", err)
	}
}

func TestRegistrySetOverride(t *testing.T) {
	r := NewRegistry()
	if err := r.Set(".SVG", "rsvg-convert -w %SIZE% -h %SIZE% -o %OUTPUT% %INPUT%"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	tmpl, _ := r.Template("svg")
	if tmpl.Binary() != "rsvg-convert" {
		t.Errorf("override not applied: %q", tmpl.Binary())
	}
	if err := r.Set("svg", "rsvg-convert %INPUT%"); !errors.Is(err, ErrMissingSlot) {
		t.Errorf("Set with missing slots err = %v", err)
	}
}

func TestInvokeSuccess(t *testing.T) {
	script := writeScript(t, `printf '%s' "$2" > "$3"`)
	inv := newTestInvoker(t, script+" %INPUT% %SIZE% %OUTPUT%")

	dest := filepath.Join(t.TempDir(), "icon.png")
	outcome := inv.Invoke(context.Background(), models.JobDescriptor{
		SourcePath:      "icon.svg",
		TargetSize:      72,
		DestinationPath: dest,
		FileType:        "svg",
	})
	if outcome.Failed() {
		t.Fatalf("unexpected failure: exit=%d output=%q", outcome.ExitCode, outcome.Output)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("converter did not write output: %v", err)
	}
	if string(data) != "72" {
		t.Errorf("size argument = %q, want 72", data)
	}
}

func TestInvokeFailureCapturesOutput(t *testing.T) {
	script := writeScript(t, "echo 'cannot parse svg' >&2\nexit 3")
	inv := newTestInvoker(t, script+" %INPUT% %SIZE% %OUTPUT%")

	outcome := inv.Invoke(context.Background(), models.JobDescriptor{FileType: "svg", TargetSize: 48})
	if !outcome.Failed() {
		t.Fatal("expected failure")
	}
	if outcome.ExitCode != 3 {
		t.Errorf("ExitCode = %d, want 3", outcome.ExitCode)
	}
	if !strings.Contains(outcome.Output, "cannot parse svg") {
		t.Errorf("Output = %q", outcome.Output)
	}
}

func TestInvokeNoStdin(t *testing.T) {
	// cat blocks forever if stdin is shared with a terminal
	script := writeScript(t, "cat > /dev/null\nexit 0")
	inv := newTestInvoker(t, script+" %INPUT% %SIZE% %OUTPUT%")

	outcome := inv.Invoke(context.Background(), models.JobDescriptor{FileType: "svg", TargetSize: 1})
	if outcome.Failed() {
		t.Errorf("unexpected failure: %+v", outcome)
	}
}

func TestInvokeStartFailure(t *testing.T) {
	inv := newTestInvoker(t, "/nonexistent/pixscale-converter %INPUT% %SIZE% %OUTPUT%")
	outcome := inv.Invoke(context.Background(), models.JobDescriptor{FileType: "svg", TargetSize: 1})
	if !outcome.Failed() || outcome.ExitCode != -1 {
		t.Errorf("outcome = %+v, want failure with exit -1", outcome)
	}
}

func TestInvokeUnknownType(t *testing.T) {
	inv := &Invoker{templates: map[string]Template{}}
	outcome := inv.Invoke(context.Background(), models.JobDescriptor{FileType: "svg"})
	if !outcome.Failed() || outcome.ExitCode != -1 {
		t.Errorf("outcome = %+v", outcome)
	}
}
