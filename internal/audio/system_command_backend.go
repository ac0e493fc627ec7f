package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"
)

// SystemCommandBackend plays one-shots by spawning a system player such as
// paplay. It cannot hold music channels.
type SystemCommandBackend struct {
	loader  *TrackLoader
	command string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// run starts the process; swapped in tests.
	run func(cmd *exec.Cmd) error
}

// NewSystemCommandBackend creates a backend around command.
func NewSystemCommandBackend(loader *TrackLoader, command string) *SystemCommandBackend {
	slog.Debug("creating system command backend", "command", command)
	ctx, cancel := context.WithCancel(context.Background())
	return &SystemCommandBackend{
		loader:  loader,
		command: command,
		ctx:     ctx,
		cancel:  cancel,
		run:     func(cmd *exec.Cmd) error { return cmd.Run() },
	}
}

func (b *SystemCommandBackend) Name() string {
	return KindSystemCommand
}

// Command returns the player executable.
func (b *SystemCommandBackend) Command() string {
	return b.command
}

func (b *SystemCommandBackend) NewChannel() (Channel, error) {
	return nil, fmt.Errorf("%w: %s", ErrChannelsNotSupported, KindSystemCommand)
}

func (b *SystemCommandBackend) NewOneShotPlayer() (OneShotPlayer, error) {
	if b.ctx.Err() != nil {
		return nil, ErrBackendClosed
	}
	return b, nil
}

// commandArgs builds the argument list for the player, mapping volume onto
// whatever flag the command understands.
func commandArgs(command, path string, volume float64) []string {
	volume = ClampVolume(volume)
	switch command {
	case "paplay":
		// paplay volume is linear in 0..65536
		return []string{"--volume=" + strconv.Itoa(int(volume*65536)), path}
	case "pw-play":
		return []string{"--volume", strconv.FormatFloat(volume, 'f', 2, 64), path}
	case "afplay":
		return []string{"-v", strconv.FormatFloat(volume, 'f', 2, 64), path}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet",
			"-volume", strconv.Itoa(int(volume * 100)), path}
	default:
		return []string{path}
	}
}

// PlayOneShot resolves the clip and runs the player in the background.
func (b *SystemCommandBackend) PlayOneShot(clip Track, volume float64) error {
	if b.ctx.Err() != nil {
		return ErrBackendClosed
	}
	path, err := b.loader.Resolve(clip)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(b.ctx, b.command, commandArgs(b.command, path, volume)...)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if err := b.run(cmd); err != nil && b.ctx.Err() == nil {
			slog.Error("system command failed", "command", b.command, "file", path, "error", err)
		}
	}()
	return nil
}

// Wait blocks until every spawned player has exited.
func (b *SystemCommandBackend) Wait() {
	b.wg.Wait()
}

// Close kills running players and waits for them.
func (b *SystemCommandBackend) Close() error {
	b.cancel()
	b.wg.Wait()
	return nil
}
