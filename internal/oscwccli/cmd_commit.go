package oscwccli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/oscwc/internal/oscwc"
)

// CommitCmd returns the commit command.
func CommitCmd(workDir string, deps oscwc.Deps) *Command {
	fs := flag.NewFlagSet("commit", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "commit [package...]",
		Short: "Commit local changes to the remote",
		Long:  "Send locally-added, locally-deleted and locally-modified packages to the remote, restricted to the given packages if any.",
		Exec: func(ctx context.Context, io *IO, args []string) error {
			proj, err := oscwc.Open(workDir, deps)
			if err != nil {
				return err
			}

			if err := proj.Commit(ctx, args...); err != nil {
				return err
			}

			io.Println("commit complete")

			return nil
		},
	}
}
