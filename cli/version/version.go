// Package version implements cli and schema version handling.
package version

import (
	"fmt"

	"github.com/Masterminds/semver"
	"github.com/aceman-ct/aceman/cli/migrate/source"
)

// DevVersion is the version string for development versions.
const DevVersion = "dev"

// BuildVersion is the version string with which CLI is built. Set during
// the build time.
var BuildVersion = DevVersion

// Version defines the version object.
type Version struct {
	// CLI is the version of CLI
	CLI string
	// CLISemver is the parsed semantic version for CLI
	CLISemver *semver.Version

	// Schema is the newest migration compiled into the binary.
	Schema source.Version
}

// GetCLIVersion return the CLI version string.
func (v *Version) GetCLIVersion() string {
	return v.CLI
}

// SetCLIVersion parses the version string vs and sets it as CLI version
func (v *Version) SetCLIVersion(s string) {
	// if semver parsing fails, cv will be nil
	sv, _ := semver.NewVersion(s)
	v.CLI = s
	if sv != nil {
		v.CLI = fmt.Sprintf("v%s", sv.String())
	}
	v.CLISemver = sv
}

// IsStableRelease reports whether the CLI is a tagged release without a
// pre-release suffix.
func (v *Version) IsStableRelease() bool {
	return v.CLISemver != nil && v.CLISemver.Prerelease() == ""
}

// AtLeast reports whether the CLI version satisfies ">= min". Development
// builds satisfy every constraint.
func (v *Version) AtLeast(min string) (bool, error) {
	if v.CLISemver == nil {
		return true, nil
	}
	c, err := semver.NewConstraint(">= " + min)
	if err != nil {
		return false, err
	}
	return c.Check(v.CLISemver), nil
}

// New returns a new version object with BuildVersion filled in as CLI
func New() *Version {
	v := &Version{}
	v.SetCLIVersion(BuildVersion)
	return v
}

// NewCLIVersion returns a new version object with CLI info filled in
func NewCLIVersion(cli string) *Version {
	v := &Version{}
	v.SetCLIVersion(cli)
	return v
}
