// Package corpus reads the corpus text file and fingerprints its content
// so the retriever can detect staleness without re-embedding.
package corpus

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
)

// Source is a read-only view of the corpus file. The corpus is authored
// and updated externally; this package never writes it.
type Source struct {
	path string
}

func NewSource(path string) *Source {
	return &Source{path: path}
}

func (s *Source) Path() string {
	return s.path
}

// Read returns the full corpus text.
func (s *Source) Read() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to read corpus %s: %w", s.path, err)
	}
	return string(data), nil
}

// Fingerprint returns the md5 hex digest of the corpus content. It is a
// cheap staleness oracle, not a security primitive: equality implies (with
// overwhelming probability) content equality.
func (s *Source) Fingerprint() (string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("failed to fingerprint corpus %s: %w", s.path, err)
	}
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:]), nil
}
