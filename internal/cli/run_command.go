package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [SCRIPT]",
		Short: "Run playback commands from a script or stdin",
		Long: `Run playback commands one per line from SCRIPT, or from stdin when no
script is given. On a terminal an interactive prompt is shown and errors do
not end the session.

` + scriptHelp + `
Example script:
  play menu
  wait 10
  crossfade battle 2
  sfx explosion 0.7
  wait 5
  stop
  settle`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := cliFromContext(cmd.Context())
			if cli == nil {
				return errNoCLI
			}

			var in io.Reader = cmd.InOrStdin()
			interactive := false
			if len(args) == 1 {
				f, err := cli.fs.Open(args[0])
				if err != nil {
					return fmt.Errorf("open script: %w", err)
				}
				defer f.Close()
				in = f
			} else if f, ok := in.(*os.File); ok {
				interactive = cli.isInteractiveTerminal(int(f.Fd()))
			}

			return withPlayer(cmd, nil, func(ctx context.Context, p *player) error {
				s := newSession(p, cmd.OutOrStdout())
				if interactive {
					fmt.Fprintf(cmd.OutOrStdout(), "segue %s, type help for commands\n", Version)
				}
				return s.Script(ctx, in, interactive)
			})
		},
	}
	return cmd
}
