// Package version holds build metadata injected with -ldflags.
package version

import "fmt"

// Set at build time: -X prepx/internal/version.Version=v1.2.3
var (
	Version   = "dev"
	Commit    = "dev"
	BuildTime = "unknown"
)

// Info is the payload served by the /version endpoints
type Info struct {
	Service   string `json:"service"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
}

// Get returns the build metadata for service
func Get(service string) Info {
	return Info{Service: service, Version: Version, Commit: Commit, BuildTime: BuildTime}
}

func (i Info) String() string {
	commit := i.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return fmt.Sprintf("%s %s (%s, built %s)", i.Service, i.Version, commit, i.BuildTime)
}
