package oscwccli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/oscwc/internal/oscwc"
)

// RmCmd returns the rm command.
func RmCmd(workDir string, deps oscwc.Deps) *Command {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "rm <package>",
		Short: "Schedule a tracked package for deletion",
		Exec: func(_ context.Context, io *IO, args []string) error {
			if len(args) != 1 {
				return errPackageArgRequired
			}

			proj, err := oscwc.Open(workDir, deps)
			if err != nil {
				return err
			}

			if err := proj.Remove(args[0]); err != nil {
				return err
			}

			io.Println("removed", args[0])

			return nil
		},
	}
}
