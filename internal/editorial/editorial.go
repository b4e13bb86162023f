// Package editorial provides the locally bundled editorial picks that are
// merged ahead of the live feed.
package editorial

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gauthierbraillon/catalogmix/internal/catalog"
)

//go:embed fixtures.yaml
var bundledFixtures []byte

type fixtureFile struct {
	Products []catalog.EditorialRecord `yaml:"products"`
}

// SourceOption configures the Source.
type SourceOption func(*Source)

// WithOverridePath makes the Source read fixtures from a file on disk
// instead of the bundled set. An empty path keeps the bundled set.
func WithOverridePath(path string) SourceOption {
	return func(s *Source) {
		s.path = path
	}
}

// WithReadFile sets the function used to read the override file (useful for testing).
func WithReadFile(readFile func(string) ([]byte, error)) SourceOption {
	return func(s *Source) {
		s.readFile = readFile
	}
}

// Source loads editorial records.
type Source struct {
	path     string
	readFile func(string) ([]byte, error)
}

// NewSource creates a Source backed by the bundled fixtures.
func NewSource(opts ...SourceOption) *Source {
	s := &Source{
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadFixtures returns the editorial records in file order.
func (s *Source) LoadFixtures(ctx context.Context) ([]catalog.EditorialRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data := bundledFixtures
	origin := "bundled fixtures"
	if s.path != "" {
		b, err := s.readFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read editorial fixtures: %w", err)
		}
		data = b
		origin = s.path
	}

	records, err := parseFixtures(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", origin, err)
	}
	return records, nil
}

func parseFixtures(data []byte) ([]catalog.EditorialRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []catalog.EditorialRecord{}, nil
	}

	var file fixtureFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if file.Products == nil {
		return nil, errors.New("missing products list")
	}
	return file.Products, nil
}
