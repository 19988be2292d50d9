package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"igfollow/pkg/browser"
	"igfollow/pkg/ui"
)

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Download the Playwright driver and Chromium",
	Long: `Download the Playwright driver and the Chromium build igfollow drives.
Run it once after installing igfollow, and again after upgrading.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.PrintHighlight("Installing Playwright driver and Chromium")
		if err := browser.InstallChromium(); err != nil {
			return fmt.Errorf("failed to install browser: %w", err)
		}
		ui.PrintSuccess("Browser installed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)
}
