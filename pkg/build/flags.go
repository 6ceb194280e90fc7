// SPDX-License-Identifier: MIT
//
// Package build exposes metadata injected at link time with -ldflags, for
// example:
//
//	go build -ldflags "-X echofx/pkg/build.buildVersion=v0.3.0 -X echofx/pkg/build.buildCommit=$(git rev-parse --short HEAD)"
//
// Development builds run without the flags and report "dev" values.
package build

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultName        = "echofx"
	DefaultDescription = "Real-time echo effect host with a Butterworth low-pass core"
	devValue           = "dev"
)

var ErrMissingFlags = errors.New("build flags missing")

// Info is the metadata of the running binary.
type Info struct {
	Name        string
	Description string
	Time        string
	Commit      string
	Version     string
}

// String renders "name version (commit, time)".
func (i Info) String() string {
	return fmt.Sprintf("%s %s (%s, %s)", i.Name, i.Version, i.Commit, i.Time)
}

// Populated by -ldflags.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
	buildInfo    = devInfo()
)

func devInfo() *Info {
	return &Info{
		Name:        DefaultName,
		Description: DefaultDescription,
		Time:        devValue,
		Commit:      devValue,
		Version:     devValue,
	}
}

// Initialize copies the ldflags values into the Info returned by Get.
// Missing values keep their development defaults; the returned error
// (wrapping ErrMissingFlags) names them so release builds can fail loudly.
func Initialize() error {
	var missing []string
	set := func(dst *string, val, name string) {
		if val == "" {
			missing = append(missing, name)
			return
		}
		*dst = val
	}

	info := devInfo()
	set(&info.Name, buildName, "BuildName")
	set(&info.Time, buildTime, "BuildTime")
	set(&info.Commit, buildCommit, "BuildCommit")
	set(&info.Version, buildVersion, "BuildVersion")
	buildInfo = info

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFlags, strings.Join(missing, ", "))
	}
	return nil
}

// Get returns the current build information.
func Get() Info {
	return *buildInfo
}
