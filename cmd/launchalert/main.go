package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"launchalert"
	"launchalert/internal/config"
	"launchalert/internal/domain"
)

var (
	configFile string
	configDir  string
	envFiles   []string
	jsonOutput bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "launchalert",
		Short: "Headless launch alert client",
		Long: `launchalert fetches the launch alert for this install, prints the session
state, and optionally answers the alert.

  launchalert check                 Fetch and print state (VIEW is reported when shown)
  launchalert accept                Fetch and accept a shown alert
  launchalert dismiss               Fetch and dismiss a shown alert
  launchalert reset                 Forget last seen alert id`,
		Version:       launchalert.SDKVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config-file", "", "path to one TOML config file")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "path to directory with TOML config fragments")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files with LAUNCHALERT_* overrides (default .env)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print states as JSON")

	rootCmd.AddCommand(
		newAnswerCmd("check", "Fetch alert and print state", ""),
		newAnswerCmd("accept", "Fetch alert and accept it", domain.ActionAccepted),
		newAnswerCmd("dismiss", "Fetch alert and dismiss it", domain.ActionCanceled),
		newResetCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func newAnswerCmd(use, short string, answer domain.Action) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kit, err := openKit()
			if err != nil {
				return err
			}
			defer kit.Close()
			return runSession(cmd.OutOrStdout(), kit, answer)
		},
	}
}

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget last seen alert id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			kit, err := openKit()
			if err != nil {
				return err
			}
			defer kit.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			if err := kit.ResetLastSeen(ctx); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "last seen alert id cleared")
			return nil
		},
	}
}

// openKit loads config from flags (or defaults plus environment) and builds Kit.
func openKit() (*launchalert.Kit, error) {
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return nil, err
	}

	var (
		cfg launchalert.Config
		err error
	)
	if strings.TrimSpace(configFile) == "" && strings.TrimSpace(configDir) == "" {
		cfg, err = config.Default()
	} else {
		var source config.ConfigSource
		source, err = config.FromCLI(configFile, configDir)
		if err == nil {
			cfg, err = config.LoadSnapshot(source)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return launchalert.New(cfg)
}

// runSession fetches, prints resulting state, and sends answer when alert is shown.
func runSession(out io.Writer, kit *launchalert.Kit, answer domain.Action) error {
	eng := kit.Engine()
	if !eng.Fetch() {
		return errors.New("fetch rejected")
	}
	eng.Wait()

	state := eng.State()
	if err := printState(out, state); err != nil {
		return err
	}
	if answer == "" || eng.CurrentAlert() == nil {
		return stateError(state)
	}

	var accepted bool
	if answer == domain.ActionAccepted {
		accepted = kit.Accept()
	} else {
		accepted = kit.Dismiss()
	}
	if !accepted {
		return fmt.Errorf("%s rejected", strings.ToLower(string(answer)))
	}
	eng.Wait()

	state = eng.State()
	if err := printState(out, state); err != nil {
		return err
	}
	return stateError(state)
}

func stateError(state domain.SessionState) error {
	if state.Err != nil {
		return fmt.Errorf("%s: %w", state.Kind, state.Err)
	}
	return nil
}

type stateView struct {
	State   string              `json:"state"`
	Alert   *domain.AlertRecord `json:"alert,omitempty"`
	Action  string              `json:"action,omitempty"`
	Error   string              `json:"error,omitempty"`
	ErrKind string              `json:"error_kind,omitempty"`
	At      time.Time           `json:"at"`
}

func printState(out io.Writer, state domain.SessionState) error {
	if !jsonOutput {
		line := state.String()
		if state.Kind == domain.StateShowingAlert && state.Alert != nil {
			line += " " + domain.StringValue(state.Alert.Title)
		}
		_, err := fmt.Fprintln(out, line)
		return err
	}
	view := stateView{
		State:  state.Kind.String(),
		Alert:  state.Alert,
		Action: string(state.Action),
		At:     state.At,
	}
	if state.Err != nil {
		view.Error = state.Err.Error()
		view.ErrKind = string(state.Err.Kind)
	}
	return json.NewEncoder(out).Encode(view)
}
