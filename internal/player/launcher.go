package player

import (
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Disabled turns the viewer off when used as its command
const Disabled = "none"

// ErrNoPlayer is returned when no candidate program could be started
var ErrNoPlayer = errors.New("no candidate players found")

// Launcher opens track URLs and captcha images in external programs
type Launcher struct {
	command string   // configured program, empty for auto-detect
	args    []string // extra arguments placed before the target
	logger  *slog.Logger

	start func(name string, args ...string) error
	look  func(name string) (string, error)
}

// launchPath is one way of starting a program on a platform
type launchPath struct {
	path      string   // "mpv", or "open-a:AppName" on macOS
	extraArgs []string // arguments the program needs for audio-only playback
}

// audioPlayers lists launch paths per platform for each known player
var audioPlayers = map[string]map[string][]launchPath{
	"mpv": {
		"darwin":  {{path: "mpv", extraArgs: []string{"--no-video"}}},
		"linux":   {{path: "mpv", extraArgs: []string{"--no-video"}}},
		"windows": {{path: "mpv", extraArgs: []string{"--no-video"}}},
	},
	"vlc": {
		"darwin":  {{path: "vlc"}, {path: "open-a:VLC"}},
		"linux":   {{path: "cvlc", extraArgs: []string{"--play-and-exit"}}, {path: "vlc"}},
		"windows": {{path: "vlc"}},
	},
	"mplayer": {
		"linux": {{path: "mplayer"}},
	},
	"ffplay": {
		"darwin":  {{path: "ffplay", extraArgs: []string{"-nodisp", "-autoexit"}}},
		"linux":   {{path: "ffplay", extraArgs: []string{"-nodisp", "-autoexit"}}},
		"windows": {{path: "ffplay", extraArgs: []string{"-nodisp", "-autoexit"}}},
	},
}

// candidatePlayers is the detection order per platform
var candidatePlayers = map[string][]string{
	"darwin":  {"mpv", "vlc", "ffplay"},
	"linux":   {"mpv", "vlc", "mplayer", "ffplay"},
	"windows": {"vlc", "mpv", "ffplay"},
}

// NewLauncher creates a launcher for the given program. An empty command
// auto-detects a player, then falls back to the system default handler.
func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	if len(args) == 0 && command != "" {
		args = profileArgs(command, runtime.GOOS)
	}
	return &Launcher{
		command: command,
		args:    args,
		logger:  logger,
		start: func(name string, args ...string) error {
			return exec.Command(name, args...).Start()
		},
		look: exec.LookPath,
	}
}

// Play starts playback of a track URL without waiting for it to finish
func (l *Launcher) Play(url string) error {
	if l.command != "" {
		return l.launchConfigured(url)
	}

	if name, err := l.detectAndLaunch(url); err == nil {
		l.logger.Info("launched with detected player", "player", name)
		return nil
	}

	l.logger.Info("no candidate players found, using system default")
	return l.launchDefault(url)
}

// Open shows a local file (a captcha image) in the configured viewer or
// the system default. A "none" command disables viewing.
func (l *Launcher) Open(path string) error {
	if l.command == Disabled {
		return nil
	}
	if l.command != "" {
		return l.launchConfigured(path)
	}
	return l.launchDefault(path)
}

func (l *Launcher) launchConfigured(target string) error {
	args := append(append([]string{}, l.args...), target)

	// macOS GUI apps are usually not on PATH
	if runtime.GOOS == "darwin" {
		if _, err := l.look(l.command); err != nil {
			openArgs := []string{"-a", l.command}
			if len(l.args) > 0 {
				openArgs = append(openArgs, "--args")
				openArgs = append(openArgs, l.args...)
			}
			openArgs = append(openArgs, target)
			l.logger.Info("using macOS 'open -a'", "app", l.command, "args", openArgs)
			return l.start("open", openArgs...)
		}
	}

	l.logger.Info("launching", "command", l.command, "args", args)
	if err := l.start(l.command, args...); err != nil {
		return fmt.Errorf("failed to start %s: %w", l.command, err)
	}
	return nil
}

func (l *Launcher) detectAndLaunch(url string) (string, error) {
	candidates, ok := candidatePlayers[runtime.GOOS]
	if !ok {
		candidates = candidatePlayers["linux"]
	}

	for _, name := range candidates {
		for _, lp := range audioPlayers[name][runtime.GOOS] {
			var err error
			if app, ok := strings.CutPrefix(lp.path, "open-a:"); ok {
				err = l.start("open", "-a", app, url)
			} else if _, err = l.look(lp.path); err == nil {
				args := append(append(append([]string{}, lp.extraArgs...), l.args...), url)
				err = l.start(lp.path, args...)
			}

			if err == nil {
				return name, nil
			}
			l.logger.Debug("launch path not available", "player", name, "path", lp.path, "error", err)
		}
	}

	return "", ErrNoPlayer
}

func (l *Launcher) launchDefault(target string) error {
	name, args := defaultOpener(runtime.GOOS, target)
	l.logger.Info("launching with system default", "os", runtime.GOOS, "target", target)
	return l.start(name, args...)
}

func defaultOpener(goos, target string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{target}
	case "windows":
		return "cmd", []string{"/c", "start", "", target}
	default:
		return "xdg-open", []string{target}
	}
}

// profileArgs returns the audio-only flags of a known player, matched by
// the base name of command
func profileArgs(command, goos string) []string {
	base := strings.ToLower(filepath.Base(command))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	for _, lp := range audioPlayers[base][goos] {
		if lp.path == base {
			return lp.extraArgs
		}
	}
	return nil
}
