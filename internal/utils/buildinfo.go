package utils

import (
	"os/exec"
	"runtime/debug"
	"strings"
)

const (
	unknownVersion = "unknown"
	develVersion   = "(devel)"
)

// Version is overridden at link time with -ldflags "-X github.com/temirov/cmdsrv/internal/utils.Version=v1.2.3".
var Version = ""

// GetApplicationVersion reports the linked version, then the module version recorded in the
// build info, then the VCS revision, falling back to git describe when running from a checkout.
func GetApplicationVersion() string {
	if Version != "" {
		return Version
	}
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable {
		if buildInfo.Main.Version != "" && buildInfo.Main.Version != develVersion {
			return buildInfo.Main.Version
		}
		for _, setting := range buildInfo.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				return setting.Value
			}
		}
	}
	// #nosec G204
	describeOutput, describeError := exec.Command("git", "describe", "--tags", "--long", "--dirty").Output()
	if describeError == nil && len(describeOutput) > 0 {
		return strings.TrimSpace(string(describeOutput))
	}
	return unknownVersion
}
