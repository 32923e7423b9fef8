package version

import (
	"testing"
)

func TestNewCLIVersionWithSemver(t *testing.T) {
	v := NewCLIVersion("v1.0.0")
	if v == nil {
		t.Fatal("expected a version object, got nil")
	}
	if v.CLI != "v1.0.0" {
		t.Fatalf("expected v1.0.0, got %s", v.CLI)
	}
	if !v.IsStableRelease() {
		t.Fatal("expected v1.0.0 to be a stable release")
	}
}

func TestNewCLIVersionWithDev(t *testing.T) {
	v := NewCLIVersion("dev")
	if v == nil {
		t.Fatal("expected a version object, got nil")
	}
	if v.CLI != "dev" {
		t.Fatalf("expected %s, got %s", "dev", v.CLI)
	}
	if v.IsStableRelease() {
		t.Fatal("expected dev not to be a stable release")
	}
}

func TestSetVersions(t *testing.T) {
	var one int64 = 1
	var zero int64 = 0
	tt := []struct {
		name   string
		in     string
		out    string
		major  *int64
		minor  *int64
		stable bool
	}{
		{"valid semver without v", "1.0.1-alpha01", "v1.0.1-alpha01", &one, &zero, false},
		{"valid semver with v", "v1.0.1-alpha01", "v1.0.1-alpha01", &one, &zero, false},
		{"release", "v1.0.3", "v1.0.3", &one, &zero, true},
		{"invalid semver", "dev", "dev", nil, nil, false},
		{"invalid semver", "build-system-1234abc", "build-system-1234abc", nil, nil, false},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			v := &Version{}
			v.SetCLIVersion(tc.in)
			if v.CLI != tc.out {
				t.Fatalf("expected version to be %s, got %s", tc.out, v.CLI)
			}
			if v.IsStableRelease() != tc.stable {
				t.Fatalf("expected stable release to be %v", tc.stable)
			}
			if v.CLISemver == nil {
				if tc.major != nil {
					t.Fatalf("expected semver to parse, but did not")
				}
				return
			}
			if v.CLISemver.Major() != *(tc.major) {
				t.Fatalf("expected major to be %d, got %d", *(tc.major), v.CLISemver.Major())
			}
			if v.CLISemver.Minor() != *(tc.minor) {
				t.Fatalf("expected minor to be %d, got %d", *(tc.minor), v.CLISemver.Minor())
			}
		})
	}
}

func TestAtLeast(t *testing.T) {
	tt := []struct {
		cli  string
		min  string
		want bool
	}{
		{"v1.2.0", "1.0.0", true},
		{"v0.9.0", "1.0.0", false},
		{"dev", "1.0.0", true},
	}
	for _, tc := range tt {
		got, err := NewCLIVersion(tc.cli).AtLeast(tc.min)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("%s >= %s: expected %v, got %v", tc.cli, tc.min, tc.want, got)
		}
	}
	if _, err := NewCLIVersion("v1.0.0").AtLeast("not a version"); err == nil {
		t.Fatal("expected an error for an invalid constraint")
	}
}
