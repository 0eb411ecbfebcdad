package filestore

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/crypto/sha3"
	"golang.org/x/text/unicode/norm"
)

// UndefinedGroup names a directory whose title is unknown.
const UndefinedGroup = "undefined"

// maxNameBytes is the common file name limit of Linux, macOS and Windows filesystems.
const maxNameBytes = 255

// collisionSuffixLen is the number of hex digits of the URL digest used
// to disambiguate colliding names.
const collisionSuffixLen = 8

// Store writes files below Root.
type Store struct {
	root string
}

// NewStore returns a Store rooted at root. The directory is created lazily.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// GroupDir returns the directory for resources of the given site grouped
// under groupTitle. Empty or unusable titles become UndefinedGroup.
func (s *Store) GroupDir(siteTitle, groupTitle string) string {
	return filepath.Join(s.root, dirName(siteTitle), dirName(groupTitle))
}

func dirName(title string) string {
	if name := SanitizeName(title); name != "" {
		return name
	}
	return UndefinedGroup
}

// WriteBytes writes data to path, creating parent directories.
// The file is written to a temporary name and renamed into place, so a
// reader never sees a partial file. It returns path.
func (s *Store) WriteBytes(path string, data []byte) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".sitewalker-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil { //nolint:gosec // downloaded files are meant to be readable
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return "", fmt.Errorf("failed to move file into place %s: %w", path, err)
	}

	return path, nil
}

// SaveResult describes where Save put a resource.
type SaveResult struct {
	// Path is the file holding the resource's bytes.
	Path string

	// Name is the base name of Path.
	Name string

	// Written is false when identical bytes were already on disk.
	Written bool
}

// Save stores data as name inside dir. When name is taken by different
// bytes, the file is stored as CollisionName(name, sourceURL) instead.
// Identical bytes already on disk are not rewritten.
func (s *Store) Save(dir, name, sourceURL string, data []byte) (*SaveResult, error) {
	candidates := []string{name, CollisionName(name, sourceURL)}

	for i, candidate := range candidates {
		path := filepath.Join(dir, candidate)

		existing, err := os.ReadFile(path) //nolint:gosec // path is built from sanitized components
		switch {
		case errors.Is(err, os.ErrNotExist):
			// free
		case err != nil:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		case bytes.Equal(existing, data):
			return &SaveResult{Path: path, Name: candidate, Written: false}, nil
		case i < len(candidates)-1:
			continue
		}

		// The URL-derived name belongs to this source, so it may be replaced.
		if _, err := s.WriteBytes(path, data); err != nil {
			return nil, err
		}
		return &SaveResult{Path: path, Name: candidate, Written: true}, nil
	}

	// unreachable: the last candidate always returns
	return nil, fmt.Errorf("no file name available for %s", name)
}

// CollisionName inserts the first hex digits of the sha3-256 digest of
// sourceURL before the extension of name: "a.jpg" becomes "a-1f2e3d4c.jpg".
func CollisionName(name, sourceURL string) string {
	sum := sha3.Sum256([]byte(sourceURL))
	suffix := hex.EncodeToString(sum[:])[:collisionSuffixLen]

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	return truncateName(stem+"-"+suffix, ext)
}

// Digest returns the hex sha3-256 digest of data.
func Digest(data []byte) string {
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// windowsReserved are device names that cannot be used as file names on Windows.
var windowsReserved = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeName makes s safe to use as a single path component.
//
// The name is NFC normalized; path separators, characters reserved on
// Windows and control characters are removed; trailing dots and spaces are
// trimmed; "." and ".." and Windows device names become empty; the result
// is cut to 255 bytes on a rune boundary. An empty result means s had no
// usable characters.
func SanitizeName(s string) string {
	s = norm.NFC.String(s)

	var b strings.Builder
	for _, r := range s {
		switch {
		case strings.ContainsRune(`/\?<>:*|"`, r):
			continue
		case unicode.IsControl(r):
			continue
		case r == utf8.RuneError:
			continue
		}
		b.WriteRune(r)
	}

	name := strings.TrimRight(b.String(), ". ")
	name = strings.TrimLeft(name, " ")
	if name == "." || name == ".." || name == "" {
		return ""
	}

	stem := name
	if i := strings.IndexByte(stem, '.'); i >= 0 {
		stem = stem[:i]
	}
	if windowsReserved[strings.ToUpper(stem)] {
		return ""
	}

	ext := filepath.Ext(name)
	if len(ext) > maxNameBytes/2 {
		ext = ""
	}
	return truncateName(strings.TrimSuffix(name, ext), ext)
}

// truncateName joins stem and ext, cutting stem so the result fits in
// maxNameBytes without splitting a rune.
func truncateName(stem, ext string) string {
	limit := maxNameBytes - len(ext)
	if len(stem) <= limit {
		return stem + ext
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(stem[cut]) {
		cut--
	}
	return stem[:cut] + ext
}
