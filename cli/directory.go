package cli

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// projectMarkers are the files that mark a project directory. Any one of
// them is enough.
var projectMarkers = []string{
	ConfigFileName + ".yaml",
	ConfigFileName + ".yml",
	ConfigFileName + ".json",
}

// validateDirectory sets the execution directory. If the current directory
// or any of its parents (upto filesystem root) has an aceman config file,
// ExecutionDirectory is set as that directory; otherwise the starting
// directory is kept and configuration comes from env and flags alone.
func (ec *ExecutionContext) validateDirectory() error {
	if len(ec.ExecutionDirectory) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "error getting current working directory")
		}
		ec.ExecutionDirectory = cwd
	}

	ed, err := ec.Fs.Stat(ec.ExecutionDirectory)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(err, "project directory %s does not exist", ec.ExecutionDirectory)
		}
		return errors.Wrap(err, "error getting directory details")
	}
	if !ed.IsDir() {
		return errors.Errorf("'%s' is not a directory", ed.Name())
	}

	abs, err := filepath.Abs(ec.ExecutionDirectory)
	if err != nil {
		return errors.Wrap(err, "cannot get absolute path")
	}
	dir, ok := findProjectDirectory(ec.Fs, abs)
	if !ok {
		ec.Logger.Debugf("no config file found in %s or its parents", abs)
		ec.ExecutionDirectory = abs
		return nil
	}
	ec.ExecutionDirectory = dir
	return nil
}

// findProjectDirectory walks up from startFrom looking for a project
// marker. It stops at the filesystem root.
func findProjectDirectory(fs afero.Fs, startFrom string) (string, bool) {
	dir := filepath.Clean(startFrom)
	for {
		if isProjectDirectory(fs, dir) {
			return dir, true
		}
		next := filepath.Dir(dir)
		if next == dir {
			return "", false
		}
		dir = next
	}
}

func isProjectDirectory(fs afero.Fs, dir string) bool {
	for _, f := range projectMarkers {
		if ok, _ := afero.Exists(fs, filepath.Join(dir, f)); ok {
			return true
		}
	}
	return false
}
