package theme

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"braces.dev/errtrace"
	"gopkg.in/yaml.v3"
)

// FileStorage persists the theme preference in a YAML file.
type FileStorage struct {
	// Path is the preference file location.
	Path string
}

type prefFile struct {
	Mode string `yaml:"mode"`
}

// Load reads the stored mode. A missing file yields [ErrNotStored].
func (s *FileStorage) Load() (Mode, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", errtrace.Wrap(ErrNotStored)
		}
		return "", errtrace.Wrap(err)
	}

	var pref prefFile
	if err := yaml.Unmarshal(data, &pref); err != nil {
		return "", errtrace.Wrap(err)
	}
	return errtrace.Wrap2(ParseMode(pref.Mode))
}

// Save writes the mode, creating parent directories as needed.
func (s *FileStorage) Save(m Mode) error {
	data, err := yaml.Marshal(prefFile{Mode: m.String()})
	if err != nil {
		return errtrace.Wrap(err)
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errtrace.Wrap(err)
		}
	}
	return errtrace.Wrap(os.WriteFile(s.Path, data, 0o644))
}
