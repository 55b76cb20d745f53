package infra

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// GetWorkDir expands base (e.g. "~/.ngguard"), appends path and makes sure the directory exists.
func GetWorkDir(base string, path ...string) (string, error) {
	workDir, err := homedir.Expand(filepath.Join(append([]string{base}, path...)...))
	if err != nil {
		return "", err
	}
	if err = os.MkdirAll(workDir, 0o755); err != nil {
		return "", err
	}
	return workDir, nil
}
