package oscwccli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/oscwc/internal/oscwc"
)

// UpdateCmd returns the update command.
func UpdateCmd(workDir string, deps oscwc.Deps) *Command {
	fs := flag.NewFlagSet("update", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "update [package...]",
		Short: "Update packages from the remote",
		Long:  "Reconcile the working copy against the remote listing, restricted to the given packages if any.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			proj, err := oscwc.Open(workDir, deps)
			if err != nil {
				return err
			}

			if err := proj.Update(ctx, args...); err != nil {
				return err
			}

			io.Println("update complete")

			return nil
		},
	}
}
