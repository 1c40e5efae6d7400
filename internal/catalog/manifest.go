package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/fideprep/fideprep-api/internal/storage"
)

// Manifest describes the seeded catalog. Sections without an explicit
// sequence are numbered by their position within level/mode/language.
type Manifest struct {
	Templates string          `yaml:"templates"`
	Sections  []ManifestEntry `yaml:"sections"`
}

type ManifestEntry struct {
	ID       string `yaml:"id"`
	Level    string `yaml:"level"`
	Mode     string `yaml:"mode"`
	Language string `yaml:"language"`
	Title    string `yaml:"title"`
	File     string `yaml:"file"`
	Sequence *int   `yaml:"sequence"`
}

type SyncReport struct {
	Sections  int
	Uploaded  int
	Templates bool
}

func LoadManifest(path string) (Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// Sync upserts every manifest section into repo and copies referenced files
// (resolved against baseDir) into the blob store.
func Sync(ctx context.Context, repo Repo, blobs storage.BlobStore, m Manifest, baseDir, templatesKey string) (SyncReport, error) {
	var rep SyncReport
	positions := map[string]int{}

	for i, e := range m.Sections {
		sec, err := e.toSection()
		if err != nil {
			return rep, fmt.Errorf("manifest entry %d: %w", i, err)
		}
		group := string(sec.Level) + "|" + string(sec.Mode) + "|" + string(sec.Language)
		if e.Sequence != nil {
			sec.SequenceIndex = *e.Sequence
		} else {
			sec.SequenceIndex = positions[group]
		}
		positions[group]++

		if e.File != "" {
			sec.ContentRef = DefaultContentRef(sec.Level, sec.Mode, sec.ID)
			if err := copyFile(blobs, filepath.Join(baseDir, e.File), sec.ContentRef); err != nil {
				return rep, fmt.Errorf("section %s: %w", sec.ID, err)
			}
			rep.Uploaded++
		}
		if err := repo.UpsertSection(ctx, sec); err != nil {
			return rep, fmt.Errorf("section %s: %w", sec.ID, err)
		}
		rep.Sections++
	}

	if m.Templates != "" {
		if err := copyFile(blobs, filepath.Join(baseDir, m.Templates), templatesKey); err != nil {
			return rep, fmt.Errorf("templates: %w", err)
		}
		rep.Templates = true
	}
	return rep, nil
}

func (e ManifestEntry) toSection() (Section, error) {
	if e.ID == "" {
		return Section{}, fmt.Errorf("missing id")
	}
	level, err := ParseLevel(e.Level)
	if err != nil {
		return Section{}, err
	}
	mode, err := ParseMode(e.Mode)
	if err != nil {
		return Section{}, err
	}
	lang, err := ParseLanguage(e.Language)
	if err != nil {
		return Section{}, err
	}
	return Section{ID: e.ID, Level: level, Mode: mode, Language: lang, Title: e.Title}, nil
}

func copyFile(blobs storage.BlobStore, src, key string) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = blobs.Put(key, f)
	return err
}
