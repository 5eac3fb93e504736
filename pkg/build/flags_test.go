// SPDX-License-Identifier: MIT
package build

import (
	"os"
	"strings"
	"testing"
)

func TestMain(m *testing.M) {
	origName, origTime, origCommit, origVersion := buildName, buildTime, buildCommit, buildVersion
	exitCode := m.Run()
	buildName, buildTime, buildCommit, buildVersion = origName, origTime, origCommit, origVersion
	buildInfo = defaultInfo()
	os.Exit(exitCode)
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name        string
		buildName   string
		buildTime   string
		buildCommit string
		buildVer    string
		wantErrs    []string
	}{
		{"Missing BuildName", "", "2025-04-13", "abcdef123", "v1.0.0", []string{"BuildName is required"}},
		{"Missing BuildTime", "testapp", "", "abcdef123", "v1.0.0", []string{"BuildTime is required"}},
		{"Missing commit and version", "testapp", "2025-04-13", "", "", []string{"BuildCommit is required", "BuildVersion is required"}},
		{"Success Case", "testapp", "2025-04-13", "abcdef123", "v1.0.0", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buildInfo = defaultInfo()
			buildName, buildTime, buildCommit, buildVersion = tt.buildName, tt.buildTime, tt.buildCommit, tt.buildVer

			err := Initialize()

			if len(tt.wantErrs) > 0 {
				if err == nil {
					t.Fatal("Initialize() expected error, got nil")
				}
				for _, want := range tt.wantErrs {
					if !strings.Contains(err.Error(), want) {
						t.Errorf("Initialize() error = %v, want it to mention %q", err, want)
					}
				}
				return
			}

			if err != nil {
				t.Fatalf("Initialize() unexpected error: %v", err)
			}
			info := Get()
			if info.Name != tt.buildName || info.Time != tt.buildTime ||
				info.Commit != tt.buildCommit || info.Version != tt.buildVer {
				t.Errorf("Get() = %+v", info)
			}
		})
	}
}

func TestMissingValuesKeepPlaceholders(t *testing.T) {
	buildInfo = defaultInfo()
	buildName, buildTime, buildCommit, buildVersion = "", "", "", "v2.0.0"

	_ = Initialize()

	info := Get()
	if info.Version != "v2.0.0" {
		t.Errorf("Version = %q, want v2.0.0", info.Version)
	}
	if info.Name != "ampmeter" || info.Commit != "dev" {
		t.Errorf("placeholders lost: %+v", info)
	}
	if !strings.Contains(info.String(), "v2.0.0") {
		t.Errorf("String() = %q", info.String())
	}
}
