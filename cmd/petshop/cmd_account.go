package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"petshop/internal/account"
	"petshop/internal/routing"
	"petshop/internal/types"

	"github.com/spf13/cobra"
)

var (
	loginEmail    string
	loginPassword string
	registerName  string

	profileName    string
	profileEmail   string
	profileAddress string
	profilePhone   string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session locally",
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and log in",
	RunE:  runRegister,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Clear the stored session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the stored session role",
	RunE:  runWhoami,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your profile",
	RunE:  runProfile,
}

var profileSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Update your profile",
	Long: `Update profile fields. Only the flags you pass are changed; the rest
keep their current values.`,
	RunE: runProfileSet,
}

func init() {
	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email")
		c.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password")
	}
	registerCmd.Flags().StringVarP(&registerName, "name", "n", "", "Full name")

	profileSetCmd.Flags().StringVar(&profileName, "name", "", "Full name")
	profileSetCmd.Flags().StringVar(&profileEmail, "email", "", "Email")
	profileSetCmd.Flags().StringVar(&profileAddress, "address", "", "Delivery address")
	profileSetCmd.Flags().StringVar(&profilePhone, "phone", "", "Phone")
	profileCmd.AddCommand(profileSetCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		s, err := a.account.Login(ctx, types.Credentials{Email: loginEmail, Password: loginPassword})
		if err != nil {
			return formError(err)
		}
		fmt.Fprintf(out, "Session stored (role %s)\n", s.Role)
		return nil
	})
}

func runRegister(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		s, err := a.account.Register(ctx, types.Registration{
			Name:     registerName,
			Email:    loginEmail,
			Password: loginPassword,
		})
		if err != nil {
			return formError(err)
		}
		fmt.Fprintf(out, "Session stored (role %s)\n", s.Role)
		return nil
	})
}

func runLogout(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.account.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out")
		return nil
	})
}

func runWhoami(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		s := a.sessions.Get()
		switch {
		case !s.Authenticated():
			fmt.Fprintln(out, "Not logged in")
		case s.Role == types.RoleNone:
			fmt.Fprintln(out, "Logged in (no role)")
		default:
			fmt.Fprintf(out, "Logged in as %s\n", s.Role)
		}
		return nil
	})
}

func runProfile(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.gate(routing.Profile); err != nil {
			return err
		}
		u, err := a.account.Profile(ctx)
		if err != nil {
			return err
		}
		printProfile(out, a, u)
		return nil
	})
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app, out io.Writer) error {
		if err := a.gate(routing.Profile); err != nil {
			return err
		}
		current, err := a.account.Profile(ctx)
		if err != nil {
			return err
		}
		update := types.ProfileUpdate{
			FullName: current.FullName,
			Email:    current.Email,
			Address:  current.Address,
			Phone:    current.Phone,
		}
		flags := cmd.Flags()
		if flags.Changed("name") {
			update.FullName = profileName
		}
		if flags.Changed("email") {
			update.Email = profileEmail
		}
		if flags.Changed("address") {
			update.Address = profileAddress
		}
		if flags.Changed("phone") {
			update.Phone = profilePhone
		}
		return a.account.UpdateProfile(ctx, update)
	})
}

func printProfile(out io.Writer, a *app, u types.User) {
	fmt.Fprintln(out, a.styles.Title.Render("Profile"))
	rows := [][2]string{
		{"Name", u.FullName},
		{"Email", u.Email},
		{"Address", u.Address},
		{"Phone", u.Phone},
	}
	for _, r := range rows {
		v := r[1]
		if v == "" {
			v = a.styles.Muted.Render("-")
		}
		fmt.Fprintf(out, "%-8s %s\n", r[0]+":", v)
	}
}

// formError flattens field validation errors into one message.
func formError(err error) error {
	fields := account.FieldErrors(err)
	if len(fields) == 0 {
		return err
	}
	names := make([]string, 0, len(fields))
	for f := range fields {
		names = append(names, f)
	}
	sort.Strings(names)
	msg := "invalid input:"
	for _, f := range names {
		msg += fmt.Sprintf(" %s: %s;", f, fields[f])
	}
	return fmt.Errorf("%s", msg[:len(msg)-1])
}
