package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSiteFile is the file name written by the init command.
const DefaultSiteFile = "site.yaml"

// ErrConfigNotFound is returned when the site file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadSiteFile reads, decodes and validates a site definition.
// Unknown fields are rejected so that typos in rule options surface early.
func LoadSiteFile(path string) (*SiteConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	return ParseSite(data)
}

// ParseSite decodes and validates a site definition from YAML bytes.
func ParseSite(data []byte) (*SiteConfig, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc SiteConfig
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, invalid("file", "is empty")
		}
		return nil, &ValidationError{Field: "file", Reason: err.Error()}
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}

	return &sc, nil
}

// IsSiteFile reports whether arg names an existing regular file.
// Commands use it to accept either a site file or a site key/id.
func IsSiteFile(arg string) bool {
	info, err := os.Stat(arg)
	return err == nil && info.Mode().IsRegular()
}
