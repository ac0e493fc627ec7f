package audio

import (
	"testing"
)

func TestLooksLikeWSL(t *testing.T) {
	tests := []struct {
		name        string
		procVersion string
		distro      string
		want        bool
	}{
		{"wsl1 kernel", "Linux version 4.4.0-19041-Microsoft (Microsoft@Microsoft.com) #1237-Microsoft", "", true},
		{"wsl2 kernel", "Linux version 5.15.74.2-microsoft-standard-WSL2 (gcc (GCC) 11.2.0) #1 SMP", "", true},
		{"distro variable", "", "Ubuntu", true},
		{"native linux", "Linux version 5.15.0-56-generic (buildd@lcy02-amd64-044) #62-Ubuntu SMP", "", false},
		{"nothing known", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeWSL(tt.procVersion, tt.distro); got != tt.want {
				t.Errorf("looksLikeWSL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommandExists(t *testing.T) {
	if CommandExists("") {
		t.Error("empty command should not exist")
	}
	if CommandExists("segue-no-such-player-12345") {
		t.Error("nonsense command should not exist")
	}
}

func installed(cmds ...string) func(string) bool {
	set := make(map[string]bool)
	for _, c := range cmds {
		set[c] = true
	}
	return func(cmd string) bool { return set[cmd] }
}

func TestFirstCommand(t *testing.T) {
	tests := []struct {
		name      string
		available []string
		want      string
	}{
		{"pulseaudio first", []string{"aplay", "ffplay", "paplay"}, "paplay"},
		{"pipewire before ffmpeg", []string{"ffplay", "pw-play"}, "pw-play"},
		{"ffplay before aplay", []string{"aplay", "ffplay"}, "ffplay"},
		{"macos", []string{"afplay"}, "afplay"},
		{"none", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := firstCommand(installed(tt.available...)); got != tt.want {
				t.Errorf("firstCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPlatformKinds(t *testing.T) {
	tests := []struct {
		name      string
		isWSL     bool
		available []string
		bgm, sfx  string
	}{
		{"native", false, []string{"paplay"}, KindMalgo, KindMalgo},
		{"wsl with paplay", true, []string{"paplay"}, KindBeep, KindSystemCommand},
		{"wsl without players", true, nil, KindBeep, KindBeep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bgm, sfx := platformKinds(tt.isWSL, installed(tt.available...))
			if bgm != tt.bgm || sfx != tt.sfx {
				t.Errorf("platformKinds() = (%s, %s), want (%s, %s)", bgm, sfx, tt.bgm, tt.sfx)
			}
		})
	}
}
