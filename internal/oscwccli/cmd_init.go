package oscwccli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/oscwc/internal/oscwc"
	"github.com/calvinalkan/oscwc/internal/oscwcconfig"
)

var errProjectRequired = errors.New("--project is required")

// InitCmd returns the init command.
func InitCmd(workDir string, cfg oscwcconfig.Config, deps oscwc.Deps) *Command {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.String("project", "", "Remote project name to track")
	fs.String("api-url", cfg.DefaultAPIURL, "Remote service base URL")

	return &Command{
		Flags: fs,
		Usage: "init [flags]",
		Short: "Create a new project working copy",
		Long:  "Create a new project working copy in the current directory.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			project, _ := fs.GetString("project")
			if project == "" {
				return errProjectRequired
			}

			apiURL, _ := fs.GetString("api-url")

			proj, err := oscwc.Init(workDir, project, apiURL, deps)
			if err != nil {
				return err
			}

			io.Println("initialized", proj.Name(), "at", proj.Path())

			return nil
		},
	}
}
