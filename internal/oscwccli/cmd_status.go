package oscwccli

import (
	"context"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/oscwc/internal/oscwc"
)

// StatusCmd returns the status command.
func StatusCmd(workDir string, deps oscwc.Deps) *Command {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)

	return &Command{
		Flags: fs,
		Usage: "status [package...]",
		Short: "Show package statuses",
		Long:  "Show the derived status of the given packages, or every tracked package if none are given.",
		Exec: func(_ context.Context, io *IO, args []string) error {
			proj, err := oscwc.Open(workDir, deps)
			if err != nil {
				return err
			}

			names := args
			if len(names) == 0 {
				names = proj.Packages()
			}

			statuses := proj.StatusMany(names...)

			for _, name := range names {
				io.Println(string(rune(statuses[name])), name)
			}

			return nil
		},
	}
}
