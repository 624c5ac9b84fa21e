package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// NewLoginCommand returns the login subcommand.
func NewLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and load your tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address", Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password", Required: true},
		},
		Action: withSession(runLogin),
	}
}

// NewRegisterCommand returns the register subcommand.
func NewRegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Create an account and sign in",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Display name", Required: true},
			&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Email address", Required: true},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Password", Required: true},
		},
		Action: withSession(runRegister),
	}
}

// NewLogoutCommand returns the logout subcommand.
func NewLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:   "logout",
		Usage:  "Sign out",
		Action: withSession(runLogout),
	}
}

// NewWhoamiCommand returns the whoami subcommand.
func NewWhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:   "whoami",
		Usage:  "Show the signed-in user",
		Action: loggedIn(runWhoami),
	}
}

func runLogin(ctx context.Context, cmd *cli.Command, s *session) error {
	p, err := s.app.Login(ctx, cmd.String("email"), cmd.String("password"))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(cmd), "Signed in as %s <%s>.\n", p.Name, p.Email)
	return nil
}

func runRegister(ctx context.Context, cmd *cli.Command, s *session) error {
	p, err := s.app.Register(ctx, cmd.String("name"), cmd.String("email"), cmd.String("password"))
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout(cmd), "Registered and signed in as %s <%s>.\n", p.Name, p.Email)
	return nil
}

func runLogout(ctx context.Context, cmd *cli.Command, s *session) error {
	if _, ok := s.app.Current(); !ok {
		fmt.Fprintln(stdout(cmd), "Not signed in.")
		return nil
	}
	if err := s.app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout(cmd), "Signed out.")
	return nil
}

func runWhoami(_ context.Context, cmd *cli.Command, s *session) error {
	p, _ := s.app.Current()
	w := stdout(cmd)
	fmt.Fprintf(w, "ID:    %s\n", p.ID)
	fmt.Fprintf(w, "Name:  %s\n", p.Name)
	fmt.Fprintf(w, "Email: %s\n", p.Email)
	return nil
}
