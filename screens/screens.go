package screens

import (
	"fmt"

	"github.com/jrsteele09/secure-health/navigation"
)

// LoadingText is shown while an operation is in progress.
const LoadingText = "Loading..."

// Screen is the presentation model of one screen. Render returns the lines to display.
type Screen interface {
	Name() navigation.Screen
	Title() string
	Render() []string
}

// Header is the main header title: the app name and build variant.
func Header(appName, variant string) string {
	return fmt.Sprintf("%s - %s", appName, variant)
}
