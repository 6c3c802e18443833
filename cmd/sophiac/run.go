package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"github.com/chazu/sophia/vm"
	"github.com/chazu/sophia/wire"
)

var runCommand = cli.Command{
	Action:    runAction,
	Name:      "run",
	Usage:     "Compile a typed program and execute it on the reference interpreter",
	ArgsUsage: "[program.cbor]",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "bundle, b", Usage: "Run a compiled bundle instead of a program"},
		cli.StringFlag{Name: "units, u", Usage: "Run the .j files of a directory instead of a program"},
		cli.IntFlag{Name: "max-steps", Value: vm.DefaultMaxSteps, Usage: "Instruction budget (0 = unlimited)"},
	},
	Description: `The run command executes the static main method of the entry class.`,
}

func runAction(ctx *cli.Context) error {
	m, err := loadManifest(ctx)
	if err != nil {
		return err
	}

	machine := vm.NewMachine(os.Stdout)
	machine.MaxSteps = ctx.Int("max-steps")
	entry := m.Project.Entry

	switch {
	case ctx.String("bundle") != "":
		data, err := os.ReadFile(ctx.String("bundle"))
		if err != nil {
			return fmt.Errorf("cannot read bundle: %w", err)
		}
		b, err := wire.UnmarshalBundle(data)
		if err != nil {
			return err
		}
		if err := b.Load(machine); err != nil {
			return err
		}
		if ctx.GlobalString("entry") == "" && b.Entry != "" {
			entry = b.Entry
		}
	case ctx.String("units") != "":
		units, err := vm.ReadUnitDir(ctx.String("units"))
		if err != nil {
			return err
		}
		if err := machine.Load(units...); err != nil {
			return err
		}
	default:
		res, err := compileProgram(ctx, m, nil)
		if err != nil {
			return err
		}
		if err := machine.Load(res.units...); err != nil {
			return err
		}
	}

	return machine.Run(entry)
}
