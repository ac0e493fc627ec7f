package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"segue.click/internal/audio"
	"segue.click/internal/bgm"
	"segue.click/internal/config"
	"segue.click/internal/jukebox"
	"segue.click/internal/library"
	"segue.click/internal/sfx"
	"segue.click/internal/tracking"
)

const Version = "0.4.0"

var errNoCLI = errors.New("CLI instance not found in context")

// CLI represents the command-line interface
type CLI struct {
	rootCmd          *cobra.Command
	fs               afero.Fs
	configManager    *config.ConfigManager
	terminalDetector TerminalDetector
	trackingDB       *sql.DB

	// newFactory builds the backend factory for a loader. Tests swap it to
	// control platform detection.
	newFactory func(loader *audio.TrackLoader) *audio.BackendFactory
}

// NewCLI creates a CLI on the OS filesystem
func NewCLI() *CLI {
	return NewCLIWithFilesystem(afero.NewOsFs())
}

// NewCLIWithFilesystem creates a CLI whose config and track lookups go through fs
func NewCLIWithFilesystem(fs afero.Fs) *CLI {
	slog.Debug("creating new CLI instance")

	rootCmd := &cobra.Command{
		Use:   "segue",
		Short: "Background music and sound effect player",
		Long: `segue plays looping background music with fades and crossfades, and
fire-and-forget sound effects layered on top.

Tracks are looked up in the configured library directories and library file,
or used directly as file paths.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if handled := handleVersionFlag(cmd); handled {
				return nil
			}
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newPlayCommand())
	rootCmd.AddCommand(newCrossfadeCommand())
	rootCmd.AddCommand(newSFXCommand())
	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newAnalyzeCommand())
	rootCmd.AddCommand(newBackendsCommand())
	rootCmd.AddCommand(newLibraryCommand())

	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	rootCmd.PersistentFlags().String("backend", "", "Audio backend ("+joinKinds()+")")
	rootCmd.PersistentFlags().String("volume", "", "Set music volume (0.0 to 1.0)")
	rootCmd.PersistentFlags().Bool("silent", false, "Silent mode - use the null backend")
	rootCmd.PersistentFlags().Bool("simulate", false, "Advance a simulated clock instead of waiting in real time")

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	return &CLI{
		rootCmd: rootCmd,
		fs:      fs,
		newFactory: func(loader *audio.TrackLoader) *audio.BackendFactory {
			return audio.NewBackendFactory(loader)
		},
	}
}

type cliKey struct{}

// contextWithCLI stores the CLI instance in ctx for command handlers
func contextWithCLI(ctx context.Context, cli *CLI) context.Context {
	return context.WithValue(ctx, cliKey{}, cli)
}

// cliFromContext extracts the CLI instance from ctx
func cliFromContext(ctx context.Context) *CLI {
	if cli, ok := ctx.Value(cliKey{}).(*CLI); ok {
		return cli
	}
	return nil
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "segue version %s\n", Version)
}

// handleVersionFlag prints the version if requested and reports whether it did
func handleVersionFlag(cmd *cobra.Command) bool {
	version, _ := cmd.Flags().GetBool("version")
	if version {
		printVersion(cmd.OutOrStdout())
		return true
	}
	return false
}

// Run executes the CLI with the given arguments and I/O streams
func (c *CLI) Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	slog.Debug("CLI run started", "args", args)

	// Version needs no config, logging, or audio.
	if len(args) > 1 && (args[1] == "--version" || args[1] == "-v") {
		printVersion(stdout)
		return 0
	}

	c.initializeSystems()
	defer c.closeTracking()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c.rootCmd.SetArgs(args[1:])
	c.rootCmd.SetIn(stdin)
	c.rootCmd.SetOut(stdout)
	c.rootCmd.SetErr(stderr)

	if err := c.rootCmd.ExecuteContext(contextWithCLI(ctx, c)); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		slog.Debug("command failed", "error", err)
		return 1
	}
	return 0
}

func (c *CLI) initializeSystems() {
	if c.configManager == nil {
		c.configManager = config.NewConfigManagerWithFilesystem(c.fs)
	}
	if c.terminalDetector == nil {
		c.terminalDetector = &DefaultTerminalDetector{}
	}
}

// loadAndValidateConfig loads configuration from flags and files, applies overrides, and validates
func loadAndValidateConfig(cmd *cobra.Command, cli *CLI) (*config.Config, error) {
	configFile, _ := cmd.Flags().GetString("config")
	backend, _ := cmd.Flags().GetString("backend")
	volumeStr, _ := cmd.Flags().GetString("volume")
	silent, _ := cmd.Flags().GetBool("silent")

	var volume float64
	if volumeStr != "" {
		vol, err := strconv.ParseFloat(volumeStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid volume value '%s': %w", volumeStr, err)
		}
		if vol < 0.0 || vol > 1.0 {
			return nil, fmt.Errorf("volume must be between 0.0 and 1.0, got %f", vol)
		}
		volume = vol
	}

	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = cli.configManager.LoadFromFile(configFile)
	} else {
		cfg, err = cli.configManager.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	cfg = cli.configManager.ApplyEnvironmentOverrides(cfg)

	if volumeStr != "" {
		cfg.Volume = volume
		slog.Debug("volume override applied", "value", volume)
	}
	if backend != "" {
		cfg.AudioBackend = backend
		slog.Debug("backend override applied", "value", backend)
	}
	if silent {
		cfg.AudioBackend = audio.KindNull
		cfg.SFXBackend = audio.KindNull
		slog.Debug("silent mode enabled")
	}

	if err := cli.configManager.ValidateConfig(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// setupLogging installs the default slog handler: stderr at the configured
// level, plus a rotated log file when file logging is enabled.
func (c *CLI) setupLogging(cfg *config.Config, stderr io.Writer) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		level = slog.LevelWarn
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}),
	}

	if fl := cfg.FileLogging; fl != nil && fl.Enabled {
		logFilePath := c.configManager.ResolveLogFilePath(fl.Filename)
		if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
			slog.Error("failed to create log directory", "path", logFilePath, "error", err)
		} else {
			fileLevel := level
			if fl.Verbose {
				fileLevel = slog.LevelDebug
			}
			fileWriter := &lumberjack.Logger{
				Filename:   logFilePath,
				MaxSize:    fl.MaxSizeMB,
				MaxBackups: fl.MaxBackups,
				MaxAge:     fl.MaxAgeDays,
				Compress:   fl.Compress,
			}
			handlers = append(handlers, slog.NewTextHandler(fileWriter, &slog.HandlerOptions{Level: fileLevel}))
		}
	}

	slog.SetDefault(slog.New(NewMultiLevelHandler(handlers...)))
	slog.Debug("logging setup completed", "level", level.String(), "handlers", len(handlers))
}

// openTracking opens the event journal once per process. A failure is logged
// and playback continues without tracking.
func (c *CLI) openTracking(cfg *config.Config) *sql.DB {
	if c.trackingDB != nil {
		return c.trackingDB
	}
	if cfg.EventTracking == nil || !cfg.EventTracking.Enabled {
		slog.Debug("event tracking disabled")
		return nil
	}

	dbPath := c.configManager.ResolveDatabasePath(cfg.EventTracking)
	db, err := tracking.NewDatabase(dbPath)
	if err != nil {
		slog.Error("failed to initialize tracking database, continuing without tracking",
			"path", dbPath, "error", err)
		return nil
	}
	c.trackingDB = db
	slog.Info("tracking database initialized", "path", dbPath)
	return db
}

func (c *CLI) closeTracking() {
	if c.trackingDB == nil {
		return
	}
	if err := c.trackingDB.Close(); err != nil {
		slog.Error("error closing tracking database", "error", err)
	}
	c.trackingDB = nil
}

// newResolver builds the track library from config plus the XDG music directories
func (c *CLI) newResolver(cfg *config.Config) (*library.Resolver, error) {
	dirs := append([]string{}, cfg.LibraryPaths...)
	dirs = append(dirs, c.configManager.XDG().ExistingLibraryPaths()...)
	resolver, err := library.Open(c.fs, cfg.LibraryFile, dirs)
	if err != nil {
		return nil, fmt.Errorf("open track library: %w", err)
	}
	return resolver, nil
}

// player is a jukebox opened for one command, with the pieces needed to drive it
type player struct {
	jb       *jukebox.Jukebox
	loader   *audio.TrackLoader
	clock    *driver
	cfg      *config.Config
	recorder *tracking.Recorder
	sfxName  string
}

// openPlayer builds the jukebox described by cfg. Extra options are applied
// after the config-derived ones.
func (c *CLI) openPlayer(cmd *cobra.Command, cfg *config.Config, opts ...jukebox.Option) (*player, error) {
	resolver, err := c.newResolver(cfg)
	if err != nil {
		return nil, err
	}
	loader := audio.NewTrackLoader(c.fs, resolver, nil)

	set, err := c.newFactory(loader).CreateBackends(cfg.AudioBackend, cfg.SFXBackend)
	if err != nil {
		return nil, fmt.Errorf("error initializing audio backend: %w", err)
	}

	base := []jukebox.Option{
		jukebox.WithCrossfadeDuration(cfg.CrossfadeDuration),
		jukebox.WithBGMOptions(
			bgm.WithFadeDuration(cfg.FadeDuration),
			bgm.WithRetargetOnSetVolume(cfg.RetargetOnSetVolume),
		),
		jukebox.WithSFXOptions(sfx.WithVolume(cfg.SFXVolume)),
		jukebox.WithEventHook(tracking.NewSlogHook(nil).Hook()),
	}

	var recorder *tracking.Recorder
	if db := c.openTracking(cfg); db != nil {
		recorder = tracking.NewRecorder(db, cfg.EventTracking.SessionLabel)
		base = append(base, jukebox.WithEventHook(recorder.Hook()))
		slog.Debug("event recorder attached", "session_id", recorder.SessionID())
	}

	jb, err := jukebox.NewFromBackends(set, append(base, opts...)...)
	if err != nil {
		_ = set.Close()
		return nil, err
	}
	if err := jb.SetBGMVolume(cfg.Volume); err != nil {
		_ = jb.Close()
		return nil, err
	}

	simulate, _ := cmd.Flags().GetBool("simulate")
	return &player{
		jb:       jb,
		loader:   loader,
		clock:    &driver{jb: jb, rate: cfg.TickRate, simulate: simulate},
		cfg:      cfg,
		recorder: recorder,
		sfxName:  set.SFX.Name(),
	}, nil
}

// close releases the jukebox. If ctx was cancelled the music is faded out
// first, on the wall clock, bounded by the fade duration.
func (p *player) close(ctx context.Context) error {
	if ctx.Err() != nil && p.jb.IsBGMPlaying() {
		slog.Info("interrupted, fading out")
		if err := p.jb.StopBGM(); err == nil {
			fade := &driver{jb: p.jb, rate: p.cfg.TickRate, simulate: p.clock.simulate}
			_ = fade.Settle(context.Background())
		}
	}
	return p.jb.Close()
}

// withPlayer loads config, sets up logging, opens a player, runs fn and
// closes the player. An interrupt ends fn and is not reported as an error.
func withPlayer(cmd *cobra.Command, opts []jukebox.Option, fn func(ctx context.Context, p *player) error) error {
	cli := cliFromContext(cmd.Context())
	if cli == nil {
		return errNoCLI
	}

	cfg, err := loadAndValidateConfig(cmd, cli)
	if err != nil {
		return err
	}
	cli.setupLogging(cfg, cmd.ErrOrStderr())

	p, err := cli.openPlayer(cmd, cfg, opts...)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	runErr := fn(ctx, p)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return errors.Join(runErr, p.close(ctx))
}
