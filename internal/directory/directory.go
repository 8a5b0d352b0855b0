// Package directory holds the fixed list of people allowed on the board and
// the initials each one is shown as.
package directory

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrUnknownUser = errors.New("unknown user")

//go:embed names.yaml
var defaultNames []byte

// Directory maps display names to initials. It is read-only after load.
type Directory struct {
	initials map[string]string
}

func New(entries map[string]string) (*Directory, error) {
	d := &Directory{initials: make(map[string]string, len(entries))}
	for name, initials := range entries {
		name, initials = strings.TrimSpace(name), strings.TrimSpace(initials)
		if name == "" || initials == "" {
			return nil, fmt.Errorf("directory entry %q: name and initials are required", name)
		}
		d.initials[name] = initials
	}
	if len(d.initials) == 0 {
		return nil, errors.New("directory is empty")
	}
	return d, nil
}

// Load reads a YAML mapping of name to initials from path. An empty path
// loads the built-in list.
func Load(path string) (*Directory, error) {
	data := defaultNames
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read directory: %w", err)
		}
		data = b
	}
	return Parse(data)
}

func Parse(data []byte) (*Directory, error) {
	var entries map[string]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse directory: %w", err)
	}
	return New(entries)
}

func (d *Directory) Initials(name string) (string, error) {
	initials, ok := d.initials[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownUser, name)
	}
	return initials, nil
}

func (d *Directory) Contains(name string) bool {
	_, ok := d.initials[name]
	return ok
}

// Names returns every display name, sorted.
func (d *Directory) Names() []string {
	out := make([]string, 0, len(d.initials))
	for name := range d.initials {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
