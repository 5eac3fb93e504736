// SPDX-License-Identifier: MIT
//
// Package build exposes metadata injected at link time:
//
//	go build -ldflags "-X ampmeter/pkg/build.buildName=ampmeter \
//	    -X ampmeter/pkg/build.buildVersion=0.1.0 ..."
//
// Development builds keep the "dev" placeholders.
package build

import (
	"errors"
	"fmt"
)

// Info describes the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

func (i *Info) String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", i.Version, i.Commit, i.Time)
}

var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = defaultInfo()
)

func defaultInfo() *Info {
	return &Info{
		Name:        "ampmeter",
		Description: "Live amplitude meter for sound-reactive sketches",
		Time:        "dev",
		Commit:      "dev",
		Version:     "dev",
	}
}

// Initialize copies the linker-provided values into Info. Missing values are
// reported together; the placeholders stay in place for them.
func Initialize() error {
	var errs []error
	set := func(dst *string, v, flag string) {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s is required", flag))
			return
		}
		*dst = v
	}

	set(&buildInfo.Name, buildName, "BuildName")
	set(&buildInfo.Time, buildTime, "BuildTime")
	set(&buildInfo.Commit, buildCommit, "BuildCommit")
	set(&buildInfo.Version, buildVersion, "BuildVersion")
	return errors.Join(errs...)
}

// Get returns the build information.
func Get() *Info {
	return buildInfo
}
