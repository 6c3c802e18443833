package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/chazu/sophia/compiler"
	"github.com/chazu/sophia/manifest"
	"github.com/chazu/sophia/vm"
	"github.com/chazu/sophia/wire"
)

var (
	buildCommand = cli.Command{
		Action:    buildAction,
		Name:      "build",
		Usage:     "Compile a typed program to unit files",
		ArgsUsage: "[program.cbor]",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "out, o", Usage: "Unit output directory (overrides output.dir)"},
			cli.StringFlag{Name: "bundle, b", Usage: "Also write a CBOR bundle (overrides output.bundle)"},
		},
		Description: `The build command writes one <Class>.j file per class of the program.`,
	}

	dumpCommand = cli.Command{
		Action:    dumpAction,
		Name:      "dump",
		Usage:     "Print the units of a typed program",
		ArgsUsage: "[program.cbor]",
		Flags: []cli.Flag{
			cli.StringFlag{Name: "class", Usage: "Only print this class"},
		},
	}
)

// compiled is the result of compiling the project program.
type compiled struct {
	session *compiler.Session
	units   []*vm.Unit
}

// compileProgram reads, resolves and compiles the program named by the
// first argument or the manifest.
func compileProgram(ctx *cli.Context, m *manifest.Manifest, sink compiler.Sink) (*compiled, error) {
	path := ctx.Args().First()
	if path == "" {
		path = m.ProgramPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read program: %w", err)
	}
	prog, err := wire.DecodeProgram(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table, err := compiler.Resolve(prog)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	session := compiler.NewSession(table, m.Options())
	units, err := session.CompileProgram(prog, sink)
	if err != nil {
		return nil, err
	}
	return &compiled{session: session, units: units}, nil
}

func buildAction(ctx *cli.Context) error {
	m, err := loadManifest(ctx)
	if err != nil {
		return err
	}
	outDir := m.OutputDir()
	if o := ctx.String("out"); o != "" {
		outDir = o
	}

	sink := compiler.DirSink{Dir: outDir}
	res, err := compileProgram(ctx, m, sink)
	if err != nil {
		return err
	}
	for _, u := range res.units {
		fmt.Printf("  %s %s\n", noteColor("wrote"), sink.Path(u.Name))
	}

	bundlePath := m.BundlePath()
	if b := ctx.String("bundle"); b != "" {
		bundlePath = b
	}
	if bundlePath != "" {
		data, err := wire.MarshalBundle(wire.NewBundle(res.session.ID, res.session.Options.EntryClass, res.units))
		if err != nil {
			return fmt.Errorf("encoding bundle: %w", err)
		}
		if err := os.WriteFile(bundlePath, data, 0644); err != nil {
			return fmt.Errorf("writing bundle: %w", err)
		}
		fmt.Printf("  %s %s\n", noteColor("bundle"), bundlePath)
	}

	fmt.Println(successColor(fmt.Sprintf("Compiled %d classes", len(res.units))))
	return nil
}

func dumpAction(ctx *cli.Context) error {
	m, err := loadManifest(ctx)
	if err != nil {
		return err
	}
	res, err := compileProgram(ctx, m, nil)
	if err != nil {
		return err
	}
	only := ctx.String("class")
	found := false
	for _, u := range res.units {
		if only != "" && u.Name != only {
			continue
		}
		found = true
		fmt.Print(u.String())
		fmt.Println()
	}
	if only != "" && !found {
		return fmt.Errorf("no class %s in program", only)
	}
	return nil
}
