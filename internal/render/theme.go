package render

import (
	"log/slog"
	"strings"

	darkmode "github.com/thiagokokada/dark-mode-go"
)

type ThemePreference int

const (
	ThemeAuto ThemePreference = iota
	ThemeLight
	ThemeDark
)

func (p ThemePreference) String() string {
	switch p {
	case ThemeLight:
		return "light"
	case ThemeDark:
		return "dark"
	default:
		return "auto"
	}
}

func ThemePreferenceFromString(raw string) ThemePreference {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ThemeDark.String():
		return ThemeDark
	case ThemeLight.String():
		return ThemeLight
	default:
		return ThemeAuto
	}
}

// palette holds the chroma style and the ANSI SGR parameters used for diff
// line prefixes and headers.
type palette struct {
	Name       string
	ChromaName string
	DiffAdd    string
	DiffDel    string
	DiffHeader string
	Hunk       string
	CommitLine string
}

var (
	lightPalette = palette{
		Name:       "light",
		ChromaName: "github",
		DiffAdd:    "32",
		DiffDel:    "31",
		DiffHeader: "1",
		Hunk:       "36",
		CommitLine: "33",
	}
	darkPalette = palette{
		Name:       "dark",
		ChromaName: "github-dark",
		DiffAdd:    "92",
		DiffDel:    "91",
		DiffHeader: "1;97",
		Hunk:       "96",
		CommitLine: "93",
	}
	detectDarkMode = darkmode.IsDarkMode
)

func paletteForPreference(pref ThemePreference, logger *slog.Logger) palette {
	switch pref {
	case ThemeDark:
		return darkPalette
	case ThemeLight:
		return lightPalette
	default:
		if detectDarkMode != nil {
			if dark, err := detectDarkMode(); err == nil {
				if dark {
					return darkPalette
				}
			} else {
				logger.Debug("detect dark-mode", slog.Any("err", err))
			}
		}
		return lightPalette
	}
}

func (p palette) isDark() bool {
	return p.Name == darkPalette.Name
}
