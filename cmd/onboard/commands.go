package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/arklim/homescout-onboarding/internal/core/domain"
)

// cli holds the state shared by the subcommands of one invocation.
type cli struct {
	opts    sessionOptions
	session *clientSession
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(sessionOptions{})
}

func newRootCmdWith(opts sessionOptions) *cobra.Command {
	c := &cli{opts: opts}

	root := &cobra.Command{
		Use:   "onboard",
		Short: "Drive the HomeScout sign-up and preferences onboarding from a terminal",
		Long: `onboard plays the role of a HomeScout mobile client.

Auth sessions and the navigation record live in a local SQLite file so the
onboarding position survives between invocations. Preferences are stored
through the onboarding API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			session, err := openSession(cmd.Context(), c.opts)
			if err != nil {
				return err
			}
			c.session = session
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if c.session != nil {
				c.session.Close()
				c.session = nil
			}
		},
	}

	root.PersistentFlags().StringVar(&c.opts.statePath, "state", "", "Device state file (default from HOMESCOUT_CLIENT_STATE_PATH)")
	root.PersistentFlags().StringVar(&c.opts.apiURL, "api", "", "Onboarding API base URL (default from HOMESCOUT_CLIENT_API_BASE_URL)")
	root.PersistentFlags().BoolVar(&c.opts.ephemeral, "ephemeral", false, "Keep state in memory for this invocation only")
	root.PersistentFlags().BoolVarP(&c.opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		c.signUpCmd(),
		c.signInCmd(),
		c.confirmCmd(),
		c.whoamiCmd(),
		c.signOutCmd(),
		c.savePreferencesCmd(),
		c.skipCmd(),
		c.nextCmd(),
		c.stateCmd(),
	)
	return root
}

func (c *cli) signUpCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and start onboarding",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := c.session.flow.SignUp(cmd.Context(), email, password, name)
			if err != nil {
				return err
			}
			return c.printSession(cmd, session)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) signInCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in to an existing account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := c.session.flow.SignIn(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return c.printSession(cmd, session)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (c *cli) confirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm <email>",
		Short: "Mark an account's email as confirmed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := c.session.gateway.Confirm(cmd.Context(), args[0]); err != nil {
				return err
			}
			if _, err := c.session.flow.RestoreSession(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "confirmed %s\n", args[0])
			return c.printNext(cmd)
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the restored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			snap := c.session.auth.Snapshot()
			user := snap.CurrentUser()
			if user == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "signed out")
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"user_id":   user.ID,
				"email":     user.Email,
				"name":      user.DisplayName,
				"confirmed": snap.IsAuthenticated,
			})
		},
	}
}

func (c *cli) signOutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.session.flow.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "signed out")
			return nil
		},
	}
}

func (c *cli) savePreferencesCmd() *cobra.Command {
	var (
		input    domain.PreferencesInput
		lat, lng float64
	)
	cmd := &cobra.Command{
		Use:   "save-preferences",
		Short: "Save search preferences and finish onboarding",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("lat") || cmd.Flags().Changed("lng") {
				input.Coordinates = &domain.Coordinates{Latitude: lat, Longitude: lng}
			}
			saved, err := c.session.flow.SavePreferences(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved preferences %s for %s\n", saved.ID, saved.PreferredLocation)
			return c.printNext(cmd)
		},
	}
	cmd.Flags().StringVar(&input.PreferredLocation, "location", "", "Preferred location")
	cmd.Flags().StringSliceVar(&input.LocationTypes, "location-type", nil, "Location type (repeatable)")
	cmd.Flags().StringSliceVar(&input.HomeTypes, "home-type", nil, "Home type (repeatable)")
	cmd.Flags().StringSliceVar(&input.Amenities, "amenity", nil, "Amenity (repeatable)")
	cmd.Flags().Int64Var(&input.MinPrice, "min-price", 0, "Minimum price")
	cmd.Flags().Int64Var(&input.MaxPrice, "max-price", 0, "Maximum price, 0 for no limit")
	cmd.Flags().IntVar(&input.Bedrooms, "bedrooms", 0, "Bedrooms")
	cmd.Flags().IntVar(&input.Bathrooms, "bathrooms", 0, "Bathrooms")
	cmd.Flags().Float64Var(&lat, "lat", 0, "Latitude of the preferred location")
	cmd.Flags().Float64Var(&lng, "lng", 0, "Longitude of the preferred location")
	_ = cmd.MarkFlagRequired("location")
	return cmd
}

func (c *cli) skipCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "skip",
		Short: "Skip the preferences step",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.session.flow.SkipPreferences(cmd.Context()); err != nil {
				return err
			}
			return c.printNext(cmd)
		},
	}
}

func (c *cli) nextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Print the screen the client should show",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.printNext(cmd)
		},
	}
}

func (c *cli) stateCmd() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the persisted navigation record",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reset {
				c.session.navigator.Reset(cmd.Context())
			}
			state := c.session.navigator.State(cmd.Context())
			out := map[string]any{
				"state":   state.Kind.String(),
				"user_id": state.UserID,
				"skipped": state.Skipped,
				"screen":  string(state.Screen),
			}
			if !state.Timestamp.IsZero() {
				out["timestamp"] = state.Timestamp.UTC().Format(time.RFC3339)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete the record before printing it")
	return cmd
}

func (c *cli) printSession(cmd *cobra.Command, session domain.Session) error {
	status := "confirmed"
	if !session.Confirmed {
		status = "awaiting email confirmation"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", session.User.Email, status)
	return c.printNext(cmd)
}

func (c *cli) printNext(cmd *cobra.Command) error {
	fmt.Fprintf(cmd.OutOrStdout(), "next: %s\n", c.session.flow.NextScreen(cmd.Context()))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
