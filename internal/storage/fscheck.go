package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var errDetectUnsupported = errors.New("filesystem detection is unsupported on this platform")

var networkFilesystems = map[string]struct{}{
	"afpfs":  {},
	"cifs":   {},
	"nfs":    {},
	"smbfs":  {},
	"smb2":   {},
	"webdav": {},
}

// NetworkFSError reports a path that lives on a network mount, where SQLite
// locking and flock(2) are unreliable.
type NetworkFSError struct {
	Path   string
	FSType string
}

func (e *NetworkFSError) Error() string {
	return fmt.Sprintf("%s is on network filesystem %q; use a path on local disk", e.Path, e.FSType)
}

// RequireLocal fails with *NetworkFSError when path, or its nearest existing
// parent, is on a network filesystem. Platforms without detection pass.
func RequireLocal(path string) error {
	return requireLocalWithDetector(path, detectFilesystemType)
}

func requireLocalWithDetector(path string, detect func(string) (string, error)) error {
	if path == "" {
		return errors.New("path is empty")
	}
	existing, err := nearestExistingPath(path)
	if err != nil {
		return fmt.Errorf("resolve %q: %w", path, err)
	}

	fsType, err := detect(existing)
	switch {
	case errors.Is(err, errDetectUnsupported):
		return nil
	case err != nil:
		return fmt.Errorf("detect filesystem for %q: %w", existing, err)
	case isNetworkFilesystem(fsType):
		return &NetworkFSError{Path: path, FSType: fsType}
	}
	return nil
}

// nearestExistingPath walks up from path until something exists, so a
// database that has not been created yet is judged by its parent mount.
func nearestExistingPath(path string) (string, error) {
	dir, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		_, err := os.Stat(dir)
		if err == nil {
			return dir, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no existing parent for %q", path)
		}
		dir = parent
	}
}

func isNetworkFilesystem(fsType string) bool {
	_, ok := networkFilesystems[strings.ToLower(strings.TrimSpace(fsType))]
	return ok
}
