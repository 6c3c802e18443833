// Sophia compiler CLI - lowers typed Sophia programs to assembler units
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"gopkg.in/urfave/cli.v1"

	"github.com/chazu/sophia/manifest"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold).SprintFunc()
	successColor = color.New(color.FgGreen).SprintFunc()
	noteColor    = color.New(color.FgCyan).SprintFunc()
)

var (
	verboseFlag = cli.IntFlag{
		Name:  "verbose, v",
		Usage: "Log verbosity (0 = manifest setting, 1 = info, 2 = debug)",
	}
	projectFlag = cli.StringFlag{
		Name:  "project, C",
		Value: ".",
		Usage: "Directory to search for sophia.toml",
	}
	entryFlag = cli.StringFlag{
		Name:  "entry, e",
		Usage: "Entry class (overrides project.entry)",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "sophiac"
	app.Usage = "Sophia code generator"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{verboseFlag, projectFlag, entryFlag}
	app.Commands = []cli.Command{
		buildCommand,
		runCommand,
		dumpCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errorColor("error:"), err)
		os.Exit(1)
	}
}

// loadManifest finds sophia.toml from the project flag, falling back to
// defaults rooted at that directory, and configures logging.
func loadManifest(ctx *cli.Context) (*manifest.Manifest, error) {
	dir := ctx.GlobalString("project")
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	if m == nil {
		m = manifest.Default(dir)
	}
	if entry := ctx.GlobalString("entry"); entry != "" {
		m.Project.Entry = entry
	}

	verbosity := m.Log.Verbosity
	if v := ctx.GlobalInt("verbose"); v > 0 {
		verbosity = v
	}
	commonlog.Configure(verbosity, nil)
	return m, nil
}
