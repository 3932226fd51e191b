package main

import (
	"os"

	"github.com/rnshah9/root/internal/cli"
	"github.com/rnshah9/root/pkg/buildinfo"
)

func main() {
	cli.SetVersion(buildinfo.Version, buildinfo.Commit, buildinfo.Date)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
