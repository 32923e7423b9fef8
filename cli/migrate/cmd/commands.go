// Package cmd scaffolds migration files in the migrations directory of a
// source checkout. The files are compiled into the binary on the next build.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/aceman-ct/aceman/cli/migrate/source"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

var ErrNoMigrationFiles = errors.New("cannot find any migration file")

type CreateOptions struct {
	Version   source.Version
	Directory string
	Name      string
	SQLUp     []byte
	SQLDown   []byte

	fs afero.Fs
}

func New(fs afero.Fs, version source.Version, name, directory string) *CreateOptions {
	if runtime.GOOS == "windows" {
		directory = strings.TrimPrefix(directory, "/")
	}
	return &CreateOptions{
		Version:   version,
		Directory: directory,
		Name:      name,
		SQLUp:     []byte{},
		SQLDown:   []byte{},
		fs:        fs,
	}
}

func (c *CreateOptions) SetSQLUp(data string) error {
	c.SQLUp = []byte(data)
	return nil
}

func (c *CreateOptions) SetSQLDown(data string) error {
	c.SQLDown = []byte(data)
	return nil
}

// Create writes the up and down files. It refuses to reuse a version or to
// mix version widths with the files already in the directory.
func (c *CreateOptions) Create() ([]string, error) {
	if c.Version.IsNil() {
		return nil, errors.Wrap(source.ErrInvalidVersion, "version must be greater than zero")
	}
	if c.Name == "" || strings.ContainsAny(c.Name, `/\. `) {
		return nil, errors.Errorf("invalid migration name %q: use letters, digits and underscores", c.Name)
	}
	if err := c.fs.MkdirAll(c.Directory, os.ModePerm); err != nil {
		return nil, errors.Wrapf(err, "cannot create directory %s", c.Directory)
	}
	if err := c.checkExisting(); err != nil {
		return nil, err
	}

	base := filepath.Join(c.Directory, fmt.Sprintf("%d_%s.", uint64(c.Version), c.Name))
	files := []string{base + "up.sql", base + "down.sql"}
	if err := afero.WriteFile(c.fs, files[0], c.SQLUp, 0644); err != nil {
		return nil, errors.Wrapf(err, "cannot write %s", files[0])
	}
	if err := afero.WriteFile(c.fs, files[1], c.SQLDown, 0644); err != nil {
		err = errors.Wrapf(err, "cannot write %s", files[1])
		// never leave an up file without its down file
		if derr := c.Delete(); derr != nil {
			return nil, multierror.Append(err, errors.Wrap(derr, "cannot remove partial migration"))
		}
		return nil, err
	}
	return files, nil
}

func (c *CreateOptions) checkExisting() error {
	entries, err := afero.ReadDir(c.fs, c.Directory)
	if err != nil {
		return errors.Wrapf(err, "cannot read directory %s", c.Directory)
	}
	digits := len(c.Version.String())
	for _, fi := range entries {
		if fi.IsDir() {
			continue
		}
		f, err := source.Parse(fi.Name())
		if err != nil {
			continue
		}
		if f.Version == c.Version {
			return errors.Wrapf(source.ErrDuplicateVersion, "version %s is used by %s", c.Version, fi.Name())
		}
		if len(f.Digits) != digits {
			return errors.Errorf("version %s has %d digits but %s has %d", c.Version, digits, fi.Name(), len(f.Digits))
		}
	}
	return nil
}

// Delete removes every file of the migration with c.Version.
func (c *CreateOptions) Delete() error {
	count := 0
	prefix := fmt.Sprintf("%d_", uint64(c.Version))
	files, err := afero.ReadDir(c.fs, c.Directory)
	if err != nil {
		return err
	}

	for _, fi := range files {
		if !fi.IsDir() && strings.HasPrefix(fi.Name(), prefix) {
			if err := c.fs.Remove(filepath.Join(c.Directory, fi.Name())); err != nil {
				return err
			}
			count = count + 1
		}
	}
	if count == 0 {
		return ErrNoMigrationFiles
	}
	return nil
}
