package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/afero"

	"wastevision-service/internal/utils"
)

const (
	timestampLayout = "20060102_150405"
	defaultUpload   = "uploaded_image.jpg"
)

var ErrInvalidDataURI = errors.New("invalid data uri")

// ArtifactStore writes request artifacts into one flat directory. Files are
// write-once and never read back by the service.
type ArtifactStore struct {
	fs  afero.Fs
	dir string
}

// NewArtifactStore roots the store at dir on fs, creating it when missing.
func NewArtifactStore(fs afero.Fs, dir string) (*ArtifactStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
	}
	return &ArtifactStore{fs: afero.NewBasePathFs(fs, dir), dir: dir}, nil
}

func (s *ArtifactStore) Dir() string {
	return s.dir
}

// Save writes data as {YYYYMMDD_HHMMSS}_{filename} and returns that name.
// Two uploads with the same name in the same second overwrite each other.
func (s *ArtifactStore) Save(filename string, data []byte, now time.Time) (string, error) {
	name := utils.SanitizeFilename(filename)
	if name == "" {
		name = defaultUpload
	}
	saved := fmt.Sprintf("%s_%s", now.Format(timestampLayout), name)

	if err := afero.WriteFile(s.fs, saved, data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact %s: %w", saved, err)
	}
	return saved, nil
}

// SaveDataURI decodes a base64 data URI (or bare base64) and saves it under
// filename.
func (s *ArtifactStore) SaveDataURI(filename, uri string, now time.Time) (string, error) {
	payload := uri
	if strings.HasPrefix(payload, "data:") {
		idx := strings.Index(payload, ",")
		if idx < 0 {
			return "", ErrInvalidDataURI
		}
		payload = payload[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return s.Save(filename, data, now)
}

// Remove deletes a previously saved artifact. Missing files are ignored.
func (s *ArtifactStore) Remove(name string) error {
	if name == "" {
		return nil
	}
	err := s.fs.Remove(utils.SanitizeFilename(name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove artifact %s: %w", name, err)
	}
	return nil
}
