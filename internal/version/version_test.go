// ABOUTME: Tests for version constants
// ABOUTME: Ensures version information is properly defined
package version

import (
	"strings"
	"testing"
)

func TestVersionFormat(t *testing.T) {
	parts := strings.Split(Version, ".")
	if len(parts) != 3 {
		t.Errorf("expected major.minor.patch, got %q", Version)
	}
}

func TestProductDefined(t *testing.T) {
	if Product == "" {
		t.Error("Product should not be empty")
	}
	if Manufacturer == "" {
		t.Error("Manufacturer should not be empty")
	}
}
