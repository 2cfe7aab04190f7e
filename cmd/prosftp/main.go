// prosftp - SSH/SFTP transfer client
package main

import (
	"os"

	"github.com/prosftp/prosftp/internal/cli"
	"github.com/prosftp/prosftp/internal/version"
)

// Version information, overridable via ldflags:
//
//	go build -ldflags "-X main.Version=v1.2.0 -X main.BuildTime=..." ./cmd/prosftp
var (
	Version   = "v1.2.0"
	BuildTime = "unknown"
)

func main() {
	version.Version = Version
	version.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
