package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"segue.click/internal/audio"
	"segue.click/internal/jukebox"
)

var (
	errUnknownCommand = errors.New("unknown command")
	errUsage          = errors.New("usage")
)

const scriptHelp = `commands:
  play TRACK              fade TRACK in as the current music
  stop                    fade the music out
  pause | resume          pause or resume the music
  restart                 restart the current track at full volume
  volume V                set the music volume (0.0 to 1.0)
  crossfade TRACK [S]     crossfade to TRACK over S seconds
  sfx CLIP [V]            play a one-shot clip, optionally at volume V
  sfx-volume V            set the default one-shot volume
  wait S                  advance the clock by S seconds
  settle                  advance the clock until fades finish
  status                  print the playback state
  help                    show this list
  quit                    end the session
`

// errQuit ends a session without error.
var errQuit = errors.New("quit")

// session interprets playback commands one line at a time
type session struct {
	jb    *jukebox.Jukebox
	clock *driver
	out   io.Writer
}

func newSession(p *player, out io.Writer) *session {
	return &session{jb: p.jb, clock: p.clock, out: out}
}

func parseVolume(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q: %w", s, err)
	}
	return v, nil
}

func parseSeconds(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid seconds %q", s)
	}
	return v, nil
}

func usage(format string) error {
	return fmt.Errorf("%w: %s", errUsage, format)
}

// Exec runs one command line. Blank lines and lines starting with # are ignored.
func (s *session) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	slog.Debug("session command", "command", name, "args", args)

	switch name {
	case "play":
		if len(args) != 1 {
			return usage("play TRACK")
		}
		return s.jb.PlayBGM(audio.Track(args[0]))
	case "stop":
		return s.jb.StopBGM()
	case "pause":
		return s.jb.PauseBGM()
	case "resume":
		return s.jb.ResumeBGM()
	case "restart":
		return s.jb.RestartBGM()
	case "volume":
		if len(args) != 1 {
			return usage("volume V")
		}
		v, err := parseVolume(args[0])
		if err != nil {
			return err
		}
		return s.jb.SetBGMVolume(v)
	case "crossfade":
		switch len(args) {
		case 1:
			return s.jb.CrossfadeBGM(audio.Track(args[0]))
		case 2:
			d, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid seconds %q: %w", args[1], err)
			}
			return s.jb.CrossfadeBGMWithDuration(audio.Track(args[0]), d)
		default:
			return usage("crossfade TRACK [SECONDS]")
		}
	case "sfx":
		switch len(args) {
		case 1:
			return s.jb.PlaySound(audio.Track(args[0]))
		case 2:
			v, err := parseVolume(args[1])
			if err != nil {
				return err
			}
			return s.jb.PlaySoundWithVolume(audio.Track(args[0]), v)
		default:
			return usage("sfx CLIP [VOLUME]")
		}
	case "sfx-volume":
		if len(args) != 1 {
			return usage("sfx-volume V")
		}
		v, err := parseVolume(args[0])
		if err != nil {
			return err
		}
		return s.jb.SetSoundVolume(v)
	case "wait":
		if len(args) != 1 {
			return usage("wait SECONDS")
		}
		secs, err := parseSeconds(args[0])
		if err != nil {
			return err
		}
		return s.clock.Wait(ctx, secs)
	case "settle":
		return s.clock.Settle(ctx)
	case "status":
		printStatus(s.out, s.jb.Status())
		return nil
	case "help":
		fmt.Fprint(s.out, scriptHelp)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, name)
	}
}

// Script runs every line from r. Non-interactive scripts stop at the first
// error; interactive sessions print it and carry on.
func (s *session) Script(ctx context.Context, r io.Reader, interactive bool) error {
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for {
		if interactive {
			fmt.Fprint(s.out, "segue> ")
		}
		if !scanner.Scan() {
			break
		}
		lineNo++

		err := s.Exec(ctx, scanner.Text())
		switch {
		case err == nil:
		case errors.Is(err, errQuit):
			return nil
		case errors.Is(err, context.Canceled):
			return err
		case interactive:
			fmt.Fprintf(s.out, "error: %v\n", err)
		default:
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if interactive {
		fmt.Fprintln(s.out)
	}
	return scanner.Err()
}

// printStatus writes a human readable snapshot of st
func printStatus(w io.Writer, st jukebox.Status) {
	b := st.BGM
	fmt.Fprintf(w, "bgm: %s", b.State)
	if b.Track.IsSet() {
		fmt.Fprintf(w, " track=%s", b.Track)
	}
	if b.Incoming.IsSet() {
		fmt.Fprintf(w, " incoming=%s", b.Incoming)
	}
	fmt.Fprintf(w, " volume=%.2f base=%.2f", b.ChannelVolume, b.BaseVolume)
	if b.Paused {
		fmt.Fprint(w, " paused")
	}
	fmt.Fprintln(w)

	if tr := b.Transition; tr != nil {
		fmt.Fprintf(w, "transition: %s %.0f%% remaining=%.2fs target=%.2f\n",
			tr.Kind, tr.Progress*100, tr.Remaining, tr.Target)
	}
	fmt.Fprintf(w, "sfx: volume=%.2f\n", st.SFXVolume)
}
