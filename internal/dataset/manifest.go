package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sugawarayuuta/sonnet"
)

// Manifest describes one Emit call.
type Manifest struct {
	Low   int         `json:"low"`
	High  int         `json:"high"`
	MaxN  int         `json:"max_n"`
	Files []FileEntry `json:"files"`
}

// FileEntry is one dataset file in the manifest.
type FileEntry struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	BLAKE2b string `json:"blake2b_256"`
}

func writeManifest(path string, m Manifest) error {
	data, err := sonnet.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads the manifest from dir.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := sonnet.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}

// Verify recomputes every file digest listed in the manifest under dir.
//
// Expectations:
//   - Returns nil when every listed file hashes to its recorded digest
//   - Names the first file whose digest differs or that cannot be read
func Verify(dir string) error {
	m, err := ReadManifest(dir)
	if err != nil {
		return err
	}
	for _, e := range m.Files {
		f, err := os.Open(filepath.Join(dir, e.Name))
		if err != nil {
			return fmt.Errorf("verify %s: %w", e.Name, err)
		}
		h := newDigest()
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return fmt.Errorf("verify %s: %w", e.Name, err)
		}
		if got := fmt.Sprintf("%x", h.Sum(nil)); got != e.BLAKE2b {
			return fmt.Errorf("verify %s: digest %s, manifest has %s", e.Name, got, e.BLAKE2b)
		}
	}
	return nil
}
