package store

import (
	"errors"
	"fmt"
	"os"
)

// ReadProjectName reads the "_project" store file.
func ReadProjectName(path string, layout Layout) (string, error) {
	return readSingleLine(layout.ProjectFile(path))
}

// WriteProjectName writes the "_project" store file.
func WriteProjectName(path string, layout Layout, name string) error {
	return writeFileAtomic(layout.ProjectFile(path), ensureTrailingNewline(name))
}

// ReadAPIURL reads the "_apiurl" store file.
func ReadAPIURL(path string, layout Layout) (string, error) {
	return readSingleLine(layout.APIURLFile(path))
}

// WriteAPIURL writes the "_apiurl" store file.
func WriteAPIURL(path string, layout Layout, apiURL string) error {
	return writeFileAtomic(layout.APIURLFile(path), ensureTrailingNewline(apiURL))
}

func readSingleLine(path string) (string, error) {
	data, err := readFile(path)
	if err != nil {
		return "", err
	}

	s := string(data)
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}

	return s, nil
}

// ReadManifest reads and parses the packages manifest.
func ReadManifest(path string, layout Layout) (Manifest, error) {
	data, err := readFile(layout.ManifestPath(path))
	if err != nil {
		return Manifest{}, err
	}

	return ParseManifest(data)
}

// WriteManifest atomically persists the packages manifest.
func WriteManifest(path string, layout Layout, m Manifest) error {
	return writeFileAtomic(layout.ManifestPath(path), string(FormatManifest(m)))
}

// requiredStorePaths are the files/dirs whose absence makes a working copy inconsistent.
func requiredStorePaths(path string, layout Layout) map[string]string {
	return map[string]string{
		"_project":  layout.ProjectFile(path),
		"_apiurl":   layout.APIURLFile(path),
		"_packages": layout.ManifestPath(path),
		"data":      layout.DataDir(path),
	}
}

// Check implements wc_check: it reports which required store paths are
// missing and, if the manifest exists but fails to parse, its raw bytes.
// A non-nil error from Check itself means an unexpected I/O failure (not a
// consistency failure) while probing.
func Check(path string, layout Layout) (missing []string, rawManifest []byte, err error) {
	for _, name := range []string{"_project", "_apiurl", "_packages"} {
		p := requiredStorePaths(path, layout)[name]
		if _, statErr := os.Stat(p); statErr != nil {
			missing = append(missing, name)
		}
	}

	if info, statErr := os.Stat(layout.DataDir(path)); statErr != nil || !info.IsDir() {
		missing = append(missing, "data")
	}

	manifestMissing := false

	for _, m := range missing {
		if m == "_packages" {
			manifestMissing = true
		}
	}

	if manifestMissing {
		return missing, nil, nil
	}

	raw, readErr := readFile(layout.ManifestPath(path))
	if readErr != nil {
		return missing, nil, fmt.Errorf("probing manifest: %w", readErr)
	}

	if _, parseErr := ParseManifest(raw); parseErr != nil {
		return missing, raw, nil
	}

	return missing, nil, nil
}

// Consistent opens the store at path, returning a WCInconsistentError if it
// is not a valid, consistent working copy.
func Consistent(path string, layout Layout) error {
	missing, raw, err := Check(path, layout)
	if err != nil {
		return err
	}

	if len(missing) > 0 || raw != nil {
		return &WCInconsistentError{Path: path, Missing: missing, RawXML: raw}
	}

	return nil
}

// Init creates a fresh, empty working copy store layout at path: the hidden
// store directory, an empty data/ subdirectory, and the _project, _apiurl
// and _packages (empty manifest) files.
func Init(path string, layout Layout, project, apiURL string) error {
	if err := os.MkdirAll(layout.StoreDir(path), dirPerms); err != nil {
		return fmt.Errorf("creating store dir: %w", err)
	}

	if err := os.MkdirAll(layout.DataDir(path), dirPerms); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	if err := WriteProjectName(path, layout, project); err != nil {
		return err
	}

	if err := WriteAPIURL(path, layout, apiURL); err != nil {
		return err
	}

	if err := WriteManifest(path, layout, Manifest{}); err != nil {
		return err
	}

	return nil
}

// ErrNotDirectory is returned when a path expected to be a directory is not.
var ErrNotDirectory = errors.New("not a directory")
