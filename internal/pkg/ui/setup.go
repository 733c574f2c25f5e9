package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/appversion/appversion/internal/pkg/config"
	"github.com/appversion/appversion/internal/pkg/git"
)

// RunInteractiveSetup asks for the main release settings and writes them to the config file.
func RunInteractiveSetup(cfgMgr *config.ViperManager) error {
	fmt.Println("Let's set up appversion for this project!")
	fmt.Println()

	// An existing file is fine, its values are overwritten below.
	_ = cfgMgr.Init()

	mode := "group"
	platform := "none"
	remote := "origin"
	branch := "main"
	language := "en"

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Changelog mode").
				Options(
					huh.NewOption("Grouped (Added, Updated, Fixed, Removed)", "group"),
					huh.NewOption("Simple list", "simple"),
					huh.NewOption("No changelog", "none"),
				).
				Value(&mode),
			huh.NewSelect[string]().
				Title("Hosting platform").
				Options(
					huh.NewOption("None", "none"),
					huh.NewOption("GitHub", "github"),
					huh.NewOption("GitLab", "gitlab"),
					huh.NewOption("Bitbucket", "bitbucket"),
				).
				Value(&platform),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Git remote").
				Value(&remote).
				Validate(git.ValidateRefName),
			huh.NewInput().
				Title("Release branch").
				Value(&branch).
				Validate(git.ValidateRefName),
			huh.NewSelect[string]().
				Title("Language").
				Options(
					huh.NewOption("English", "en"),
					huh.NewOption("Français", "fr"),
				).
				Value(&language),
		),
	).Run()
	if err != nil {
		return err
	}

	settings := SetupSettings(mode, platform, remote, branch, language)
	for _, kv := range settings {
		if err := cfgMgr.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", kv[0], err)
		}
	}

	fmt.Printf("\nConfiguration saved to %s\n", cfgMgr.GetConfigPath())
	fmt.Println()

	return nil
}

// SetupSettings converts wizard answers to config key/value pairs.
func SetupSettings(mode, platform, remote, branch, language string) [][2]string {
	settings := [][2]string{
		{"changelog.enabled", fmt.Sprintf("%t", mode != "none")},
	}
	if mode != "none" {
		settings = append(settings, [2]string{"changelog.mode", mode})
	}
	settings = append(settings, [2]string{"platform.enabled", fmt.Sprintf("%t", platform != "none")})
	if platform != "none" {
		settings = append(settings, [2]string{"platform.name", platform})
	}
	return append(settings,
		[2]string{"git.remote", strings.TrimSpace(remote)},
		[2]string{"git.branch", strings.TrimSpace(branch)},
		[2]string{"ui.language", language},
	)
}
