package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"segue.click/internal/library"
)

func newLibraryCommand() *cobra.Command {
	libraryCmd := &cobra.Command{
		Use:   "library",
		Short: "Inspect and build track libraries",
		Long:  "Commands for listing the tracks segue can find and for writing library files",
	}
	libraryCmd.AddCommand(newLibraryListCommand())
	libraryCmd.AddCommand(newLibraryInitCommand())
	return libraryCmd
}

// trackInfo is one row of library list
type trackInfo struct {
	Name   string
	Source string // "json" or "directory"
	Path   string
}

func newLibraryListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every track name that resolves",
		Long: `List the tracks named in the library file and the audio files found in the
library directories. Names from the library file shadow directory files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := cliFromContext(cmd.Context())
			if cli == nil {
				return errNoCLI
			}
			cfg, err := loadAndValidateConfig(cmd, cli)
			if err != nil {
				return err
			}
			resolver, err := cli.newResolver(cfg)
			if err != nil {
				return err
			}

			dirs := append(append([]string{}, cfg.LibraryPaths...), cli.configManager.XDG().ExistingLibraryPaths()...)
			tracks := discoverTracks(cli.fs, dirs, resolver)
			slog.Info("discovered tracks", "count", len(tracks))

			nameWidth, sourceWidth := len("NAME"), len("SOURCE")
			for _, t := range tracks {
				nameWidth = max(nameWidth, len(t.Name))
				sourceWidth = max(sourceWidth, len(t.Source))
			}
			format := fmt.Sprintf("%%-%ds  %%-%ds  %%s\n", nameWidth, sourceWidth)

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, format, "NAME", "SOURCE", "PATH")
			for _, t := range tracks {
				fmt.Fprintf(w, format, t.Name, t.Source, t.Path)
			}
			return nil
		},
	}
}

// discoverTracks lists library file entries first, then files under dirs
// whose names are not already taken.
func discoverTracks(fs afero.Fs, dirs []string, resolver *library.Resolver) []trackInfo {
	var tracks []trackInfo
	seen := make(map[string]bool)

	for _, m := range resolver.Mappers() {
		jm, ok := m.(*library.JSONMapper)
		if !ok {
			continue
		}
		for _, name := range jm.Names() {
			paths, _ := jm.MapPath(name)
			path := ""
			if len(paths) > 0 {
				path = paths[0]
			}
			tracks = append(tracks, trackInfo{Name: name, Source: jm.GetType(), Path: path})
			seen[name] = true
		}
	}

	for _, dir := range dirs {
		entries, err := library.Scan(fs, dir)
		if err != nil {
			slog.Debug("skipping library directory", "dir", dir, "error", err)
			continue
		}
		for _, e := range entries {
			if seen[e.Name] {
				continue
			}
			tracks = append(tracks, trackInfo{Name: e.Name, Source: "directory", Path: filepath.Join(dir, e.Path)})
			seen[e.Name] = true
		}
	}
	return tracks
}

func newLibraryInitCommand() *cobra.Command {
	var output string
	var force bool

	cmd := &cobra.Command{
		Use:   "init DIR",
		Short: "Write a library file for the audio files in DIR",
		Long: `Scan DIR for audio files and write a JSON library mapping each track name
(the file's path below DIR without extension) to its file.

Examples:
  segue library init ~/music/game
  segue library init ./assets --output ./assets/tracks.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cli := cliFromContext(cmd.Context())
			if cli == nil {
				return errNoCLI
			}
			dir := args[0]
			if output == "" {
				output = filepath.Join(dir, "library.json")
			}

			if _, err := cli.fs.Stat(output); err == nil && !force {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", output)
			}

			entries, err := library.Scan(cli.fs, dir)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				return fmt.Errorf("no audio files found in %s", dir)
			}
			if err := library.WriteJSON(cli.fs, output, entries); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created library: %s (%d tracks)\n", output, len(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "", "Library file to write (default DIR/library.json)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing library file")
	return cmd
}
