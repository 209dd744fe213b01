package transport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactExt is the extension of the downloadable ESC/POS fallback file
const ArtifactExt = ".bin"

// ArtifactStore keeps payloads that could not be delivered so the user can
// download them
type ArtifactStore interface {
	Save(name string, data []byte) (string, error)
}

// DirArtifacts stores artifacts as files in a directory
type DirArtifacts struct {
	Dir string
}

// Save writes data to Dir/name and returns the file name
func (d DirArtifacts) Save(name string, data []byte) (string, error) {
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artifact directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(d.Dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}

	return name, nil
}

// Open returns the path of a stored artifact, rejecting names that would
// escape Dir
func (d DirArtifacts) Open(name string) (string, error) {
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid artifact name: %s", name)
	}

	path := filepath.Join(d.Dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

// ArtifactName turns a label like "bill 7" into "bill-7.bin"
func ArtifactName(label string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, label)

	clean = strings.Trim(clean, "-")
	if clean == "" {
		clean = "receipt"
	}
	return clean + ArtifactExt
}
