// Package manifest handles sophia.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/chazu/sophia/compiler"
)

// FileName is the name of the project configuration file.
const FileName = "sophia.toml"

// Manifest represents a sophia.toml project configuration.
type Manifest struct {
	Project Project       `toml:"project"`
	Source  Source        `toml:"source"`
	Output  Output        `toml:"output"`
	Codegen CodegenConfig `toml:"codegen"`
	Log     LogConfig     `toml:"log"`

	// Dir is the directory containing the sophia.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name  string `toml:"name"`
	Entry string `toml:"entry"`
}

// Source locates the typed program produced by the front end.
type Source struct {
	Program string `toml:"program"`
}

// Output configures where units are written.
type Output struct {
	Dir    string `toml:"dir"`
	Bundle string `toml:"bundle"`
}

// CodegenConfig configures code generation.
type CodegenConfig struct {
	StackLimit int    `toml:"stack-limit"`
	RootClass  string `toml:"root-class"`
}

// LogConfig configures logging.
type LogConfig struct {
	Verbosity int `toml:"verbosity"`
}

// Default returns the manifest used when no sophia.toml exists.
func Default(dir string) *Manifest {
	m := &Manifest{Dir: dir}
	m.applyDefaults()
	return m
}

// Load parses a sophia.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	if m.Codegen.StackLimit < 0 {
		return nil, fmt.Errorf("%s: codegen.stack-limit must not be negative", path)
	}

	m.applyDefaults()
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	d := compiler.DefaultOptions()
	if m.Project.Entry == "" {
		m.Project.Entry = d.EntryClass
	}
	if m.Source.Program == "" {
		m.Source.Program = "program.cbor"
	}
	if m.Output.Dir == "" {
		m.Output.Dir = "output"
	}
	if m.Codegen.StackLimit == 0 {
		m.Codegen.StackLimit = d.StackLimit
	}
	if m.Codegen.RootClass == "" {
		m.Codegen.RootClass = d.RootClass
	}
}

// FindAndLoad walks up from startDir to find a sophia.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Options maps the manifest onto code generation options.
func (m *Manifest) Options() compiler.Options {
	return compiler.Options{
		EntryClass: m.Project.Entry,
		RootClass:  m.Codegen.RootClass,
		StackLimit: m.Codegen.StackLimit,
	}
}

// ProgramPath returns the absolute path of the input program.
func (m *Manifest) ProgramPath() string {
	return m.resolve(m.Source.Program)
}

// OutputDir returns the absolute path of the unit directory.
func (m *Manifest) OutputDir() string {
	return m.resolve(m.Output.Dir)
}

// BundlePath returns the absolute bundle path, or "" when no bundle is
// configured.
func (m *Manifest) BundlePath() string {
	if m.Output.Bundle == "" {
		return ""
	}
	return m.resolve(m.Output.Bundle)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
