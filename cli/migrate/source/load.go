package source

import (
	"io/fs"
	"path"
	"sort"

	"github.com/pkg/errors"
)

type pair struct {
	file *File
	up   *File
	down *File
	desc Descriptor
}

// Load reads every migration file in dir of fsys and builds a Registry from
// them. Files not matching Regex are ignored. Each version needs both an up
// and a down file, and all versions must be written with the same number of
// digits so that file names sort the same way versions do.
func Load(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read migrations from %q", dir)
	}

	pairs := make(map[Version]*pair)
	var width *File
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		f, err := Parse(e.Name())
		if err == ErrParse {
			continue
		}
		if err != nil {
			return nil, err
		}
		if width == nil {
			width = f
		} else if len(f.Digits) != len(width.Digits) {
			return nil, errors.Wrapf(ErrInvalidVersion, "%s and %s use versions of different width", width.Raw, f.Raw)
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, f.Raw))
		if err != nil {
			return nil, errors.Wrapf(err, "cannot read file %s", f.Raw)
		}

		p, ok := pairs[f.Version]
		if !ok {
			p = &pair{file: f, desc: Descriptor{Version: f.Version, Name: f.Name}}
			pairs[f.Version] = p
		}
		if p.file.Name != f.Name {
			return nil, &DuplicateVersionError{Version: f.Version, First: p.file.Raw, Second: f.Raw}
		}
		switch f.Direction {
		case Up:
			if p.up != nil {
				return nil, &DuplicateVersionError{Version: f.Version, First: p.up.Raw, Second: f.Raw}
			}
			p.up = f
			p.desc.Up = string(data)
		case Down:
			if p.down != nil {
				return nil, &DuplicateVersionError{Version: f.Version, First: p.down.Raw, Second: f.Raw}
			}
			p.down = f
			p.desc.Down = string(data)
		}
	}

	versions := make([]Version, 0, len(pairs))
	for v := range pairs {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })

	descriptors := make([]Descriptor, 0, len(pairs))
	for _, v := range versions {
		p := pairs[v]
		if p.up == nil {
			return nil, errors.Wrapf(ErrIncomplete, "%s has no %s file", p.desc, Up)
		}
		if p.down == nil {
			return nil, errors.Wrapf(ErrIncomplete, "%s has no %s file", p.desc, Down)
		}
		descriptors = append(descriptors, p.desc)
	}
	return NewRegistry(descriptors...)
}
