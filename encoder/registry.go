package encoder

import (
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"pixscale/logger"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrBinaryNotFound  = errors.New("converter binary not found in PATH")
)

// Built-in commands. PNG output is required from every template.
var defaultCommands = map[string]string{
	"svg": "inkscape %INPUT% --export-type=png --export-filename=%OUTPUT% -w %SIZE% -h %SIZE%",
	"pdf": "magick -density 300 -background none %INPUT%[0] -resize %SIZE%x%SIZE% png:%OUTPUT%",
	"eps": "magick -density 300 -background none %INPUT% -resize %SIZE%x%SIZE% png:%OUTPUT%",
}

// Registry maps a source file type (extension without dot) to its command
type Registry struct {
	templates map[string]Template
	lookPath  func(string) (string, error)
}

// NewRegistry returns a registry holding the built-in commands
func NewRegistry() *Registry {
	r := &Registry{
		templates: make(map[string]Template, len(defaultCommands)),
		lookPath:  exec.LookPath,
	}
	for fileType, command := range defaultCommands {
		r.templates[fileType] = MustParseTemplate(command)
	}
	return r
}

// Set adds or replaces the command for a file type
func (r *Registry) Set(fileType, command string) error {
	t, err := ParseTemplate(command)
	if err != nil {
		return fmt.Errorf("command for %s: %w", fileType, err)
	}
	r.templates[normalizeType(fileType)] = t
	logger.Debugf("converter [%s] set to %q", fileType, command)
	return nil
}

// Types lists the registered file types, sorted
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.templates))
	for t := range r.templates {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Template returns the command for a file type without checking PATH
func (r *Registry) Template(fileType string) (Template, bool) {
	t, ok := r.templates[normalizeType(fileType)]
	return t, ok
}

// Resolve returns the command for fileType after verifying its binary exists
func (r *Registry) Resolve(fileType string) (Template, error) {
	t, ok := r.Template(fileType)
	if !ok {
		return Template{}, fmt.Errorf("%w: %s (supported: %s)", ErrUnsupportedType, fileType, strings.Join(r.Types(), ", "))
	}
	path, err := r.lookPath(t.Binary())
	if err != nil {
		return Template{}, fmt.Errorf("%w: %s is required to process %s files", ErrBinaryNotFound, t.Binary(), fileType)
	}
	logger.Debugf("converter [%s] resolved (command: %s)", fileType, path)
	return t, nil
}

// NewInvoker resolves every listed type up front and returns an invoker for them.
// Any unresolvable type is a fatal startup error.
func (r *Registry) NewInvoker(fileTypes ...string) (*Invoker, error) {
	resolved := make(map[string]Template, len(fileTypes))
	for _, ft := range fileTypes {
		t, err := r.Resolve(ft)
		if err != nil {
			return nil, err
		}
		resolved[normalizeType(ft)] = t
	}
	return &Invoker{templates: resolved}, nil
}

func normalizeType(fileType string) string {
	return strings.ToLower(strings.TrimPrefix(fileType, "."))
}
