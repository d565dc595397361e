package main

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivepull/internal/config"
	"github.com/tonimelisma/drivepull/internal/gdrive"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authenticate with Google Drive in the browser",
		RunE:  runLogin,
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved authentication token",
		RunE:  runLogout,
	}
}

func runLogin(_ *cobra.Command, _ []string) error {
	logger := buildLogger()
	ctx := context.Background()

	creds, err := credentialsFromConfig()
	if err != nil {
		return err
	}

	_, err = gdrive.Login(ctx, config.TokenPath(), creds, openBrowser, logger)
	if err != nil {
		return err
	}

	statusf("Login successful.\n")

	return nil
}

func runLogout(_ *cobra.Command, _ []string) error {
	logger := buildLogger()

	if err := gdrive.Logout(config.TokenPath(), logger); err != nil {
		return err
	}

	statusf("Logged out.\n")

	return nil
}

// credentialsFromConfig extracts the OAuth2 client from the resolved
// config, with a setup hint when it is missing.
func credentialsFromConfig() (gdrive.Credentials, error) {
	if resolvedCfg == nil || resolvedCfg.Auth.ClientID == "" {
		return gdrive.Credentials{}, fmt.Errorf(
			"no OAuth2 client configured — set [auth] client_id and client_secret in %s", config.ConfigPath())
	}

	return gdrive.Credentials{
		ClientID:     resolvedCfg.Auth.ClientID,
		ClientSecret: resolvedCfg.Auth.ClientSecret,
	}, nil
}

// openBrowser launches the platform's default browser at url.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
