// Package host knows how the panel is being run: docked inside a compositing
// application or on its own in a terminal.
package host

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// FeatureEnv names the host application when the panel runs inside it.
const FeatureEnv = "FOUNDRY_APPLICATION_FEATURE_NAME"

const settingsSuffix = "_toDoSettings.xml"

type Kind int

const (
	Standalone Kind = iota
	Nuke
	Hiero
)

func (k Kind) String() string {
	switch k {
	case Nuke:
		return "nuke"
	case Hiero:
		return "hiero"
	default:
		return "standalone"
	}
}

// Hosted reports whether the panel lives inside a host application.
func (k Kind) Hosted() bool { return k != Standalone }

var ErrUnsavedScript = errors.New("save the script before using the to-do list so its settings can be stored next to it")

// Detect reads the host from the environment.
func Detect() Kind {
	return detect(os.Getenv(FeatureEnv))
}

func detect(feature string) Kind {
	feature = strings.ToLower(feature)
	switch {
	case strings.Contains(feature, "nuke"):
		return Nuke
	case strings.Contains(feature, "hiero"):
		return Hiero
	default:
		return Standalone
	}
}

// SettingsPath returns the task file kept next to a saved script, e.g.
// shot.nk -> shot_toDoSettings.xml.
func SettingsPath(scriptPath string) (string, error) {
	scriptPath = strings.TrimSpace(scriptPath)
	if scriptPath == "" || scriptPath == "Root" {
		return "", ErrUnsavedScript
	}
	return strings.TrimSuffix(scriptPath, filepath.Ext(scriptPath)) + settingsSuffix, nil
}
