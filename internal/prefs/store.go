// Package prefs persists each document's last-used optimization settings
// (mode, scope, dimensions). This is a client-side convenience, not part
// of the protocol contract; losing the file costs nothing but defaults.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
	"github.com/spf13/afero"
	yaml "gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatTOML = "toml"
)

// DocumentPrefs holds the remembered settings for one document.
type DocumentPrefs struct {
	Mode       string   `json:"mode,omitempty" yaml:"mode,omitempty" toml:"mode,omitempty"`
	Scope      string   `json:"scope,omitempty" yaml:"scope,omitempty" toml:"scope,omitempty"`
	Dimensions []string `json:"dimensions,omitempty" yaml:"dimensions,omitempty" toml:"dimensions,omitempty"`
}

type prefsFile struct {
	Documents map[string]DocumentPrefs `json:"documents" yaml:"documents" toml:"documents"`
}

// Store reads and writes per-document preferences. The filesystem is
// injected so tests run on afero.MemMapFs; on a real filesystem a flock
// guards concurrent penflow invocations.
type Store struct {
	fsys     afero.Fs
	filePath string
	format   string

	mu   sync.Mutex
	flk  *flock.Flock
	docs map[string]DocumentPrefs
}

// NewStore creates a store backed by fsys at filePath. Format must be
// json, yaml or toml; an empty format is inferred from the extension and
// defaults to json.
func NewStore(fsys afero.Fs, filePath, format string) (*Store, error) {
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(filePath), ".")
		if format == "yml" {
			format = formatYAML
		}
		if format == "" {
			format = formatJSON
		}
	}
	switch format {
	case formatJSON, formatYAML, formatTOML:
	default:
		return nil, fmt.Errorf("unsupported prefs format: %s (supported: json, yaml, toml)", format)
	}

	s := &Store{
		fsys:     fsys,
		filePath: filePath,
		format:   format,
		docs:     make(map[string]DocumentPrefs),
	}
	// flock needs a real path; MemMapFs and friends go without.
	if _, ok := fsys.(*afero.OsFs); ok {
		s.flk = flock.New(filePath + ".lock")
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns the remembered settings for a document key.
func (s *Store) Get(docKey string) (DocumentPrefs, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.docs[docKey]
	return p, ok
}

// Set remembers settings for a document key and writes them through.
func (s *Store) Set(docKey string, p DocumentPrefs) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[docKey] = p
	return s.save()
}

// Delete forgets a document's settings.
func (s *Store) Delete(docKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, docKey)
	return s.save()
}

func (s *Store) load() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	data, err := afero.ReadFile(s.fsys, s.filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil // first run, nothing saved yet
		}
		return fmt.Errorf("read prefs file %s: %w", s.filePath, err)
	}
	if len(data) == 0 {
		return nil
	}

	var pf prefsFile
	switch s.format {
	case formatJSON:
		err = json.Unmarshal(data, &pf)
	case formatYAML:
		err = yaml.Unmarshal(data, &pf)
	case formatTOML:
		err = toml.Unmarshal(data, &pf)
	}
	if err != nil {
		return fmt.Errorf("parse prefs file %s: %w", s.filePath, err)
	}
	if pf.Documents != nil {
		s.docs = pf.Documents
	}
	return nil
}

func (s *Store) save() error {
	if err := s.lock(); err != nil {
		return err
	}
	defer s.unlock()

	pf := prefsFile{Documents: s.docs}
	var data []byte
	var err error
	switch s.format {
	case formatJSON:
		data, err = json.MarshalIndent(pf, "", "  ")
	case formatYAML:
		data, err = yaml.Marshal(pf)
	case formatTOML:
		var b strings.Builder
		err = toml.NewEncoder(&b).Encode(pf)
		data = []byte(b.String())
	}
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	if dir := filepath.Dir(s.filePath); dir != "." && dir != "" {
		if err := s.fsys.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create prefs directory %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(s.fsys, s.filePath, data, 0o644); err != nil {
		return fmt.Errorf("write prefs file %s: %w", s.filePath, err)
	}
	return nil
}

func (s *Store) lock() error {
	if s.flk == nil {
		return nil
	}
	if err := s.flk.Lock(); err != nil {
		return fmt.Errorf("lock prefs file: %w", err)
	}
	return nil
}

func (s *Store) unlock() {
	if s.flk != nil {
		_ = s.flk.Unlock()
	}
}
