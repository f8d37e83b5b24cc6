package oscwccli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/oscwc/internal/oscwc"
)

var errPackageArgRequired = errors.New("exactly one package name is required")

// AddCmd returns the add command.
func AddCmd(workDir string, deps oscwc.Deps) *Command {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "add <package>",
		Short: "Start tracking a package directory",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) != 1 {
				return errPackageArgRequired
			}

			proj, err := oscwc.Open(workDir, deps)
			if err != nil {
				return err
			}

			if err := proj.Add(args[0]); err != nil {
				return err
			}

			io.Println("added", args[0])

			return nil
		},
	}
}
