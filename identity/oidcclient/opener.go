package oidcclient

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
)

// Opener presents the authorization URL to the user.
type Opener func(authURL string) error

// OpenBrowser launches the platform browser and always prints the URL as a fallback.
func OpenBrowser(authURL string) error {
	fmt.Fprintf(os.Stderr, "Sign in by opening the following URL in your browser:\n\n  %s\n\n", authURL)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", authURL)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", authURL)
	default:
		cmd = exec.Command("xdg-open", authURL)
	}
	// A missing browser is not fatal, the printed URL still works
	if err := cmd.Start(); err == nil {
		go cmd.Wait()
	}
	return nil
}

// PrintURL only prints the URL. Used on headless machines.
func PrintURL(authURL string) error {
	_, err := fmt.Fprintf(os.Stderr, "Sign in by opening the following URL in your browser:\n\n  %s\n\n", authURL)
	return err
}
