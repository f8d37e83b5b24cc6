package oscwccli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/oscwc/internal/oscwc"
	"github.com/calvinalkan/oscwc/internal/oscwcconfig"
	"github.com/calvinalkan/oscwc/internal/store"
)

// Run is the CLI's main entry point. Returns the process exit code.
// sigCh can be nil if signal handling is not needed (e.g. in tests).
func Run(_ io.Reader, out, errOut io.Writer, args []string, env []string, sigCh <-chan os.Signal) int {
	globalFlags := flag.NewFlagSet("oscwc", flag.ContinueOnError)
	globalFlags.SetInterspersed(false)
	globalFlags.Usage = func() {}
	globalFlags.SetOutput(&strings.Builder{})

	flagHelp := globalFlags.BoolP("help", "h", false, "Show help")
	flagCwd := globalFlags.StringP("cwd", "C", "", "Run as if started in `dir`")
	flagConfig := globalFlags.StringP("config", "c", "", "Use specified config `file`")
	flagStoreDir := globalFlags.String("store-dir", "", "Override the store `directory` name")

	if err := globalFlags.Parse(args[1:]); err != nil {
		fprintln(errOut, "error:", err)
		printGlobalOptions(errOut)

		return 1
	}

	workDir := *flagCwd
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			fprintln(errOut, "error:", err)

			return 1
		}
	}

	cfg, _, err := oscwcconfig.LoadConfig(oscwcconfig.LoadInput{
		WorkDir:          workDir,
		ConfigPath:       *flagConfig,
		StoreDirOverride: *flagStoreDir,
		HasStoreDirFlag:  globalFlags.Changed("store-dir"),
		Env:              env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)
		printGlobalOptions(errOut)

		return 1
	}

	deps := projectDeps(workDir, cfg)

	commands := allCommands(workDir, cfg, deps)

	commandMap := make(map[string]*Command, len(commands))
	for _, cmd := range commands {
		commandMap[cmd.Name()] = cmd
	}

	commandAndArgs := globalFlags.Args()

	if *flagHelp || (len(commandAndArgs) == 0 && globalFlags.NFlag() == 0) {
		printUsage(out, commands)

		return 0
	}

	if len(commandAndArgs) == 0 {
		fprintln(errOut, "error: no command provided")
		printUsage(errOut, commands)

		return 1
	}

	cmdName := commandAndArgs[0]

	cmd, ok := commandMap[cmdName]
	if !ok {
		fprintln(errOut, "error: unknown command:", cmdName)
		printUsage(errOut, commands)

		return 1
	}

	cmdIO := NewIO(out, errOut)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan int, 1)

	go func() {
		done <- cmd.Run(ctx, cmdIO, commandAndArgs[1:])
	}()

	select {
	case exitCode := <-done:
		if exitCode != 0 {
			return exitCode
		}

		return cmdIO.Finish()
	case <-sigCh:
		fprintln(errOut, "shutting down with 5s timeout...")
		cancel()
	}

	select {
	case <-done:
		fprintln(errOut, "graceful shutdown ok (130)")

		return 130
	case <-time.After(5 * time.Second):
		fprintln(errOut, "graceful shutdown timed out, forced exit (130)")

		return 130
	case <-sigCh:
		fprintln(errOut, "graceful shutdown interrupted, forced exit (130)")

		return 130
	}
}

// projectDeps builds the oscwc.Deps this CLI wires every subcommand with:
// the configured store layout, the local non-networked package factory,
// and a disk-persisted stand-in remote (see localremote.go).
func projectDeps(workDir string, cfg oscwcconfig.Config) oscwc.Deps {
	layout := store.DefaultLayout()
	layout.StoreDirName = cfg.StoreDir

	remote := newLocalRemote(layout.StoreDir(workDir))

	return oscwc.Deps{
		Layout:  layout,
		Factory: newLocalFactory(cfg.StoreDir),
		Lister:  remote,
		Remote:  remote,
	}
}

// allCommands returns all commands in display order. Dependencies are
// captured via closures in each command constructor.
func allCommands(workDir string, cfg oscwcconfig.Config, deps oscwc.Deps) []*Command {
	return []*Command{
		InitCmd(workDir, cfg, deps),
		StatusCmd(workDir, deps),
		UpdateCmd(workDir, deps),
		CommitCmd(workDir, deps),
		AddCmd(workDir, deps),
		RmCmd(workDir, deps),
	}
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

const globalOptionsHelp = `  -h, --help              Show help
  -C, --cwd <dir>         Run as if started in <dir>
  -c, --config <file>     Use specified config file
  --store-dir <directory> Override the store directory name`

func printGlobalOptions(w io.Writer) {
	fprintln(w, "Usage: oscwc [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Global flags:")
	fprintln(w, globalOptionsHelp)
	fprintln(w)
	fprintln(w, "Run 'oscwc --help' for a list of commands.")
}

func printUsage(w io.Writer, commands []*Command) {
	fprintln(w, "oscwc - osc-style project working copy client")
	fprintln(w)
	fprintln(w, "Usage: oscwc [flags] <command> [args]")
	fprintln(w)
	fprintln(w, "Flags:")
	fprintln(w, globalOptionsHelp)
	fprintln(w)
	fprintln(w, "Commands:")

	for _, cmd := range commands {
		fprintln(w, cmd.HelpLine())
	}
}
