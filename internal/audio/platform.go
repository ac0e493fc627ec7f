package audio

import (
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// wslMarkers appear in /proc/version under both WSL1 and WSL2 kernels.
var wslMarkers = []string{"microsoft", "wsl"}

// IsWSL reports whether the process runs under Windows Subsystem for Linux.
func IsWSL() bool {
	version, _ := os.ReadFile("/proc/version")
	return looksLikeWSL(string(version), os.Getenv("WSL_DISTRO_NAME"))
}

func looksLikeWSL(procVersion, distro string) bool {
	if distro != "" {
		slog.Debug("wsl distro set", "distro", distro)
		return true
	}
	lower := strings.ToLower(procVersion)
	for _, m := range wslMarkers {
		if strings.Contains(lower, m) {
			slog.Debug("wsl kernel detected", "marker", m)
			return true
		}
	}
	return false
}

// CommandExists reports whether command is on PATH.
func CommandExists(command string) bool {
	if command == "" {
		return false
	}
	_, err := exec.LookPath(command)
	return err == nil
}

// oneShotCommands are the external players tried for effects, best first.
// ffplay is ahead of aplay because aplay only handles WAV.
var oneShotCommands = []string{"paplay", "pw-play", "ffplay", "aplay", "afplay"}

// firstCommand returns the first installed one-shot player, or "".
func firstCommand(exists func(string) bool) string {
	for _, cmd := range oneShotCommands {
		if exists(cmd) {
			return cmd
		}
	}
	return ""
}

// platformKinds picks music and effects backends for "auto". Under WSL
// malgo crackles, so music goes through beep and effects through an
// external player when one is installed.
func platformKinds(isWSL bool, exists func(string) bool) (bgm, sfx string) {
	if !isWSL {
		return KindMalgo, KindMalgo
	}
	if cmd := firstCommand(exists); cmd != "" {
		slog.Debug("wsl: beep for music, external player for effects", "command", cmd)
		return KindBeep, KindSystemCommand
	}
	slog.Warn("no external audio player found under wsl, using beep for effects")
	return KindBeep, KindBeep
}
