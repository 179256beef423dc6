package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	portalAuth "github.com/MrEthical07/portalAuth"
	"github.com/MrEthical07/portalAuth/action"
)

var (
	loginEmail    string
	loginPassword string
	staffID       string
	regName       string
	regEmail      string
	regPhone      string
	regPassword   string
	googleToken   string
	returnTo      string
)

// statusView is the printable part of a Session. The credential is never
// printed.
type statusView struct {
	Authenticated        bool   `yaml:"authenticated"`
	CredentialStored     bool   `yaml:"credential_stored"`
	RegistrationComplete bool   `yaml:"registration_complete"`
	UserID               string `yaml:"user_id,omitempty"`
	Name                 string `yaml:"name,omitempty"`
	Email                string `yaml:"email,omitempty"`
	StaffID              string `yaml:"staff_id,omitempty"`
	Role                 string `yaml:"role,omitempty"`
	Home                 string `yaml:"home,omitempty"`
}

func viewOf(m *portalAuth.Manager) statusView {
	s := m.Snapshot()
	v := statusView{
		Authenticated:        s.IsAuthenticated,
		CredentialStored:     s.Credential != "",
		RegistrationComplete: s.RegistrationComplete,
	}
	if s.User != nil {
		v.UserID = s.User.ID
		v.Name = s.User.Name
		v.Email = s.User.Email
		v.StaffID = s.User.StaffID
		v.Role = s.User.Role
	}
	if s.IsAuthenticated {
		v.Home = m.Resolver().Resolve(s.Role(), "")
	}
	return v
}

func printYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Validates the stored session and prints it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := newManager(cmd)
		if err != nil {
			return err
		}
		defer m.Close()

		v := viewOf(m)
		if v.CredentialStored && !v.Authenticated {
			// Startup keeps the credential only when the authority is unreachable.
			if err := m.Revalidate(cmd.Context()); err != nil {
				logger.WithError(err).Warn("authority unreachable, stored credential kept")
			}
			v = viewOf(m)
		}
		return printYAML(cmd.OutOrStdout(), v)
	},
}

// submitAction builds a Manager and a Controller, runs submit and prints
// where the user lands.
func submitAction(cmd *cobra.Command, kind action.Kind, submit func(*action.Controller) (action.Outcome, error)) error {
	m, err := newManager(cmd)
	if err != nil {
		return err
	}
	defer m.Close()

	ctrl := action.New(m, m.Resolver(), action.WithLogger(logger))
	out, err := submit(ctrl)
	if err != nil {
		msg := ctrl.ErrorMessage(kind)
		fmt.Fprintln(cmd.ErrOrStderr(), msg)
		return fmt.Errorf("%s: %w", kind, err)
	}

	logger.WithFields(logrus.Fields{
		"user_id": out.Result.User.ID,
		"role":    out.Result.User.Role,
	}).Info("signed in")
	fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\nredirect: %s\n",
		displayName(out.Result.User.Name, out.Result.User.Email), out.Result.User.Role, out.Redirect)
	return nil
}

func displayName(name, email string) string {
	if name != "" {
		return name
	}
	return email
}

func secretFromEnv(flag, env string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(env)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Signs in with email and password",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		password := secretFromEnv(loginPassword, "PORTAL_PASSWORD")
		if loginEmail == "" || password == "" {
			return errors.New("email and password are required")
		}
		return submitAction(cmd, action.KindLogin, func(c *action.Controller) (action.Outcome, error) {
			return c.Login(cmd.Context(), loginEmail, password, returnTo)
		})
	},
}

var staffLoginCmd = &cobra.Command{
	Use:   "staff-login",
	Short: "Signs in with a staff ID",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if action.NormalizeStaffID(staffID) == "" {
			return errors.New("staff ID is required")
		}
		return submitAction(cmd, action.KindStaffLogin, func(c *action.Controller) (action.Outcome, error) {
			return c.StaffLogin(cmd.Context(), staffID, returnTo)
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Creates an account and signs in",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		in := portalAuth.RegisterInput{
			Name:        regName,
			Email:       regEmail,
			PhoneNumber: regPhone,
			Password:    secretFromEnv(regPassword, "PORTAL_PASSWORD"),
		}
		if in.Name == "" || in.Email == "" || in.Password == "" {
			return errors.New("name, email and password are required")
		}
		return submitAction(cmd, action.KindRegister, func(c *action.Controller) (action.Outcome, error) {
			return c.Register(cmd.Context(), in, returnTo)
		})
	},
}

var googleSignInCmd = &cobra.Command{
	Use:   "google-signin",
	Short: "Signs in with a Google OAuth credential",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		credential := secretFromEnv(googleToken, "PORTAL_GOOGLE_CREDENTIAL")
		if credential == "" {
			return errors.New("google credential is required")
		}
		return submitAction(cmd, action.KindGoogleSignIn, func(c *action.Controller) (action.Outcome, error) {
			return c.GoogleSignIn(cmd.Context(), credential, returnTo)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clears the stored session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := portalAuth.New().WithConfig(cfg).WithLogger(logger).Build()
		if err != nil {
			return err
		}
		defer m.Close()

		dest := action.New(m, m.Resolver()).Logout(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "signed out\nredirect: %s\n", dest)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, staffLoginCmd, registerCmd, googleSignInCmd} {
		c.Flags().StringVar(&returnTo, "from", "", "location to return to after signing in")
	}

	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "account password (default $PORTAL_PASSWORD)")

	staffLoginCmd.Flags().StringVar(&staffID, "staff-id", "", "staff ID, e.g. HFA42")

	registerCmd.Flags().StringVar(&regName, "name", "", "full name")
	registerCmd.Flags().StringVar(&regEmail, "email", "", "email")
	registerCmd.Flags().StringVar(&regPhone, "phone", "", "phone number")
	registerCmd.Flags().StringVar(&regPassword, "password", "", "password (default $PORTAL_PASSWORD)")

	googleSignInCmd.Flags().StringVar(&googleToken, "credential", "", "Google OAuth credential (default $PORTAL_GOOGLE_CREDENTIAL)")

	rootCmd.AddCommand(statusCmd, loginCmd, staffLoginCmd, registerCmd, googleSignInCmd, logoutCmd)
}
