package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/trezcool/utulivu/core/school"
	"github.com/trezcool/utulivu/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp        = errors.New("help provided")
	errNoPassword  = errors.New("password cannot be empty")
	errPwdMismatch = errors.New("passwords do not match")
)

type commandLine struct {
	db        *sql.DB
	usrRepo   user.Repository
	schoolSvc *school.Service
	validate  *validator.Validate
}

func (cli *commandLine) rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "admin",
		Short:         "Administer the utulivu backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	cmd.AddCommand(
		cli.migrateCmd(),
		cli.addUserCmd(),
		cli.resetPasswordCmd(),
		cli.addSchoolCmd(),
	)
	return cmd
}

// run executes the command line args, program name included.
func (cli *commandLine) run(args []string) error {
	cmd := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// promptPassword reads a password from the terminal without echoing it, twice when confirm is set.
func promptPassword(cmd *cobra.Command, confirm bool) (string, error) {
	read := func(prompt string) (string, error) {
		fmt.Fprint(cmd.OutOrStdout(), prompt)
		pwd, err := readPasswordFunc(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.OutOrStdout())
		return string(pwd), err
	}

	pwd, err := read("Enter password: ")
	if err != nil {
		return "", err
	}
	if pwd == "" {
		return "", errNoPassword
	}
	if confirm {
		again, err := read("Confirm password: ")
		if err != nil {
			return "", err
		}
		if again != pwd {
			return "", errPwdMismatch
		}
	}
	return pwd, nil
}
