// Copyright 2025 The Macrodiff Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Macrodiff mines preprocessor-annotated diffs into annotation trees.
package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/maruel/subcommands"
	"go.chromium.org/luci/common/cli"

	"github.com/macrodiff/macrodiff/subcmd/minecmd"
	"github.com/macrodiff/macrodiff/subcmd/parsecmd"
	"github.com/macrodiff/macrodiff/subcmd/version"
)

const versionString = "0.1.0"

func main() {
	// Print a stack trace when a panic occurs.
	defer func() {
		if r := recover(); r != nil {
			const size = 64 << 10
			buf := make([]byte, size)
			buf = buf[:runtime.Stack(buf, false)]
			log.Fatalf("panic: %v\n%s", r, buf)
		}
	}()

	if os.Getenv("MACRODIFF_DEBUG") != "" {
		log.SetLevel(log.DebugLevel)
		logBuildInfo()
	}

	app := &cli.Application{
		Name:  "macrodiff",
		Title: "tool to mine preprocessor-annotated diffs into annotation trees",
		Commands: []*subcommands.Command{
			parsecmd.Cmd(),
			minecmd.Cmd(),
			version.Cmd(versionString),
			subcommands.CmdHelp,
		},
	}
	os.Exit(subcommands.Run(app, nil))
}

func logBuildInfo() {
	buildinfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	log.Debugf("main module: %s %s %s", buildinfo.Main.Path, buildinfo.Main.Version, vcsInfo(buildinfo))
	for _, m := range buildinfo.Deps {
		log.Debugf("deps module: %s %s", m.Path, m.Version)
	}
}

func vcsInfo(buildinfo *debug.BuildInfo) string {
	m := make(map[string]string)
	for _, bs := range buildinfo.Settings {
		if strings.HasPrefix(bs.Key, "vcs.") {
			m[bs.Key] = bs.Value
		}
	}
	return fmt.Sprintf("vcs[revision=%s time=%s modified=%s]", m["vcs.revision"], m["vcs.time"], m["vcs.modified"])
}
