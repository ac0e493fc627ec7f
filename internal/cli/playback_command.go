package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"segue.click/internal/audio"
	"segue.click/internal/bgm"
	"segue.click/internal/jukebox"
)

// hold keeps the music playing for d, or until interrupted when d is zero.
// A simulated clock has no interrupt, so zero only lets the fade finish.
func (p *player) hold(ctx context.Context, d time.Duration) error {
	if d > 0 {
		return p.clock.Wait(ctx, d.Seconds())
	}
	if p.clock.simulate {
		return p.clock.Settle(ctx)
	}
	return p.clock.Forever(ctx)
}

// fadeOut stops the music and waits for the fade to finish
func (p *player) fadeOut(ctx context.Context) error {
	if err := p.jb.StopBGM(); err != nil {
		return err
	}
	return p.clock.Settle(ctx)
}

func newPlayCommand() *cobra.Command {
	var holdFor time.Duration
	var fade float64

	cmd := &cobra.Command{
		Use:   "play TRACK",
		Short: "Fade a track in, hold it, then fade it out",
		Long: `Fade a track in as looping background music.

With --for the track plays for that long and then fades out. Without it the
track plays until interrupted (Ctrl+C), which also fades it out.

Examples:
  segue play menu                  # play until Ctrl+C
  segue play menu --for 30s        # thirty seconds, then fade out
  segue play battle --fade 2.5     # slower fades`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []jukebox.Option
			if cmd.Flags().Changed("fade") {
				opts = append(opts, jukebox.WithBGMOptions(bgm.WithFadeDuration(fade)))
			}
			return withPlayer(cmd, opts, func(ctx context.Context, p *player) error {
				track := audio.Track(args[0])
				if err := p.jb.PlayBGM(track); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "playing %s\n", track)
				if err := p.hold(ctx, holdFor); err != nil {
					return err
				}
				return p.fadeOut(ctx)
			})
		},
	}

	cmd.Flags().DurationVar(&holdFor, "for", 0, "How long to play before fading out (0 = until interrupted)")
	cmd.Flags().Float64Var(&fade, "fade", 0, "Fade duration in seconds (default from config)")
	return cmd
}

func newCrossfadeCommand() *cobra.Command {
	var after, holdFor time.Duration
	var duration float64

	cmd := &cobra.Command{
		Use:   "crossfade FROM TO",
		Short: "Play one track, then crossfade into another",
		Long: `Play FROM, crossfade into TO after --after, then hold TO.

Examples:
  segue crossfade menu battle
  segue crossfade menu battle --after 10s --duration 3 --for 20s`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlayer(cmd, nil, func(ctx context.Context, p *player) error {
				from, to := audio.Track(args[0]), audio.Track(args[1])
				if err := p.jb.PlayBGM(from); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "playing %s\n", from)
				if err := p.clock.Wait(ctx, after.Seconds()); err != nil {
					return err
				}

				var err error
				if cmd.Flags().Changed("duration") {
					err = p.jb.CrossfadeBGMWithDuration(to, duration)
				} else {
					err = p.jb.CrossfadeBGM(to)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "crossfading to %s\n", to)
				if err := p.clock.Settle(ctx); err != nil {
					return err
				}
				if err := p.hold(ctx, holdFor); err != nil {
					return err
				}
				return p.fadeOut(ctx)
			})
		},
	}

	cmd.Flags().DurationVar(&after, "after", 5*time.Second, "How long FROM plays before the crossfade")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Crossfade duration in seconds (default from config)")
	cmd.Flags().DurationVar(&holdFor, "for", 5*time.Second, "How long TO plays before fading out (0 = until interrupted)")
	return cmd
}

func newSFXCommand() *cobra.Command {
	var volume float64
	var wait bool

	cmd := &cobra.Command{
		Use:   "sfx CLIP",
		Short: "Play a one-shot sound effect",
		Long: `Play a one-shot sound effect at the default effect volume, or at --volume
without changing the default.

Examples:
  segue sfx click
  segue sfx explosion --volume 0.5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPlayer(cmd, nil, func(ctx context.Context, p *player) error {
				clip := audio.Track(args[0])
				var err error
				if cmd.Flags().Changed("volume") {
					err = p.jb.PlaySoundWithVolume(clip, volume)
				} else {
					err = p.jb.PlaySound(clip)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "played %s\n", clip)

				if !wait || p.clock.simulate {
					return nil
				}
				return p.waitForClip(ctx, clip)
			})
		},
	}

	// "volume" is also a persistent root flag for the music; this one shadows it.
	cmd.Flags().Float64Var(&volume, "volume", 1.0, "Play at this volume instead of the default")
	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the clip to finish before exiting")
	return cmd
}

// waitForClip blocks for the decoded length of clip so the process does not
// cut the sound off by exiting.
func (p *player) waitForClip(ctx context.Context, clip audio.Track) error {
	pcm, err := p.loader.Load(clip)
	if err != nil {
		slog.Debug("clip length unknown, not waiting", "clip", clip, "error", err)
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(pcm.Duration()):
		return nil
	}
}
