package version

import "testing"

func TestColoredPlain(t *testing.T) {
	orig := Version
	defer func() { Version = orig }()

	Version = "1.2.3-rc.1+build.123"
	if got := Colored(false); got != "1.2.3-rc.1+build.123" {
		t.Fatalf("Colored(false) = %q", got)
	}
	Version = "dev"
	if got := Colored(true); got != "dev" {
		t.Fatalf("Colored(true) on non-semver = %q", got)
	}
}

func TestDefaultVersionIsSet(t *testing.T) {
	if Version == "" {
		t.Fatal("Version should have a default value")
	}
}
