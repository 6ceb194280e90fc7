// SPDX-License-Identifier: MIT
package build

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	origName, origTime, origCommit, origVersion := buildName, buildTime, buildCommit, buildVersion
	origInfo := buildInfo

	exitCode := m.Run()

	buildName, buildTime, buildCommit, buildVersion = origName, origTime, origCommit, origVersion
	buildInfo = origInfo

	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantMissing string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", "BuildName"},
		{"Missing BuildTime", "testapp", "", "abcdef123", "v1.0.0", "BuildTime"},
		{"Missing BuildCommit", "testapp", "2025-04-13", "", "v1.0.0", "BuildCommit"},
		{"Missing BuildVersion", "testapp", "2025-04-13", "abcdef123", "", "BuildVersion"},
		{"Missing everything", "", "", "", "", "BuildName, BuildTime, BuildCommit, BuildVersion"},
		{"Success Case", "testapp", "2025-04-13", "abcdef123", "v1.0.0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildName = tt.buildName
			buildTime = tt.buildTime
			buildCommit = tt.buildCommit
			buildVersion = tt.buildVer

			err := Initialize()
			info := Get()

			if tt.wantMissing != "" {
				if !errors.Is(err, ErrMissingFlags) {
					t.Fatalf("Initialize() error = %v, want ErrMissingFlags", err)
				}
				if !strings.HasSuffix(err.Error(), tt.wantMissing) {
					t.Errorf("Initialize() error = %q, want it to name %q", err, tt.wantMissing)
				}
			} else if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}

			want := func(got, set, fallback string) {
				t.Helper()
				if set == "" {
					set = fallback
				}
				if got != set {
					t.Errorf("got %q, want %q", got, set)
				}
			}
			want(info.Name, tt.buildName, DefaultName)
			want(info.Time, tt.buildTime, devValue)
			want(info.Commit, tt.buildCommit, devValue)
			want(info.Version, tt.buildVer, devValue)
			if info.Description != DefaultDescription {
				t.Errorf("Description = %q", info.Description)
			}
		})
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Name: "echofx", Version: "v1.0.0", Commit: "abcdef1", Time: "2025-04-13"}
	if got, want := info.String(), "echofx v1.0.0 (abcdef1, 2025-04-13)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	info := Get()
	info.Name = "mutated"
	if Get().Name == "mutated" {
		t.Error("Get() must not expose the package state")
	}
}
