// Package version derives the daemon's version string from the build
// metadata the Go toolchain embeds via runtime/debug.BuildInfo, so no
// -ldflags plumbing is needed.
package version

import "runtime/debug"

// AppName is used in version strings, log fields, and user agents.
const AppName = "opera"

// Full returns "opera/<short-commit>", falling back to "opera/dev" when
// no VCS metadata is available (go test, non-git builds).
func Full() string {
	return AppName + "/" + commit()
}

func commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "dev"
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 8 {
				return s.Value[:8]
			}
			return s.Value
		}
	}
	return "dev"
}
