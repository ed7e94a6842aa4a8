package fleet

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"

	"servermanager/pkg/logging"
)

const profileExt = ".yaml"

// Storage persists profiles as one yaml file per profile.
type Storage struct {
	dir string
}

// NewStorage returns storage rooted at dir.
func NewStorage(dir string) *Storage {
	return &Storage{dir: dir}
}

// Dir returns the profiles directory.
func (s *Storage) Dir() string {
	return s.dir
}

// LoadAll reads every profile file in the directory. Invalid files are skipped
// with a warning; a missing directory yields an empty list.
func (s *Storage) LoadAll() ([]*Profile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("ProfileStorage", "Profiles directory %s does not exist yet", s.dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read profiles directory %s: %w", s.dir, err)
	}

	seen := make(map[string]string)
	var profiles []*Profile
	for _, entry := range entries {
		if entry.IsDir() || !isProfileFile(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		p, err := s.loadFile(path)
		if err != nil {
			logging.Warn("ProfileStorage", "Skipping %s: %v", path, err)
			continue
		}
		if other, dup := seen[p.Key()]; dup {
			logging.Warn("ProfileStorage", "Skipping %s: profile id %s already defined in %s", path, p.ID, other)
			continue
		}
		seen[p.Key()] = path
		profiles = append(profiles, p)
	}

	logging.Debug("ProfileStorage", "Loaded %d profiles from %s", len(profiles), s.dir)
	return profiles, nil
}

func (s *Storage) loadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("malformed profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save writes the profile atomically to <dir>/<id>.yaml.
func (s *Storage) Save(p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create profiles directory %s: %w", s.dir, err)
	}

	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile %s: %w", p.ID, err)
	}

	path := s.pathFor(p.ID)
	if err := renameio.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile %s: %w", path, err)
	}
	logging.Debug("ProfileStorage", "Saved profile %s to %s", p.ID, path)
	return nil
}

// Delete removes the profile file.
func (s *Storage) Delete(id string) error {
	if err := os.Remove(s.pathFor(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete profile %s: %w", id, err)
	}
	return nil
}

func (s *Storage) pathFor(id string) string {
	return filepath.Join(s.dir, NormalizeID(id)+profileExt)
}

func isProfileFile(name string) bool {
	base := filepath.Base(name)
	return strings.EqualFold(filepath.Ext(base), profileExt) && !strings.HasPrefix(base, ".")
}

// Reload replaces the fleet content with the profiles on disk.
func Reload(f *Fleet, s *Storage) error {
	profiles, err := s.LoadAll()
	if err != nil {
		return err
	}
	f.Replace(profiles)
	return nil
}

// SaveAll persists every profile of the fleet.
func SaveAll(f *Fleet, s *Storage) error {
	var errs []error
	for _, p := range f.List() {
		if err := s.Save(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
