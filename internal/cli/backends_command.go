package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"segue.click/internal/audio"
)

func joinKinds() string {
	return strings.Join(audio.SupportedBackends(), ", ")
}

func newBackendsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List audio backends and the one auto detection picks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := cliFromContext(cmd.Context())
			if cli == nil {
				return errNoCLI
			}
			cfg, err := loadAndValidateConfig(cmd, cli)
			if err != nil {
				return err
			}

			factory := cli.newFactory(nil)
			bgmKind, sfxKind, err := factory.ResolveKinds(cfg.AudioBackend, cfg.SFXBackend)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Supported backends:")
			for _, kind := range audio.SupportedBackends() {
				marker := " "
				if kind == bgmKind || kind == sfxKind {
					marker = "*"
				}
				fmt.Fprintf(w, "  %s %s\n", marker, kind)
			}
			fmt.Fprintf(w, "\nConfigured: music=%s effects=%s\n", orAuto(cfg.AudioBackend), orAuto(cfg.SFXBackend))
			fmt.Fprintf(w, "Resolved:   music=%s effects=%s\n", bgmKind, sfxKind)
			return nil
		},
	}
}

func orAuto(kind string) string {
	if kind == "" {
		return audio.KindAuto
	}
	return kind
}
