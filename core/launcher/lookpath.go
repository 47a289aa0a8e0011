package launcher

import (
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrNotFound is the error resulting if a path search failed to find an executable file.
var ErrNotFound = exec.ErrNotFound

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

// LookPath searches for an executable named file in the given directories.
// If file contains a slash, it is tried directly and the search path is not
// consulted; a missing file is then reported as fs.ErrNotExist rather than
// ErrNotFound.
func LookPath(searchPath []string, file string) (string, error) {
	if strings.Contains(file, "/") {
		if err := findExecutable(file); err != nil {
			return "", err
		}
		return file, nil
	}

	permissionDenied := false
	for _, dir := range searchPath {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		path := filepath.Join(dir, file)
		switch err := findExecutable(path); {
		case err == nil:
			return path, nil
		case errors.Is(err, fs.ErrPermission):
			permissionDenied = true
		}
	}

	if permissionDenied {
		return "", fs.ErrPermission
	}
	return "", ErrNotFound
}
