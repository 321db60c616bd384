package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/utulivu/core"
	"github.com/trezcool/utulivu/core/user"
)

var errSchoolRequired = errors.New("school admins need a --school")

func (cli *commandLine) addUserCmd() *cobra.Command {
	var (
		name, uname, email, schoolID string
		superAdmin                   bool
	)
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update an admin user. The password is prompted next",
		RunE: func(cmd *cobra.Command, args []string) error {
			if uname == "" || email == "" {
				_ = cmd.Help()
				return errHelp
			}
			if !superAdmin && schoolID == "" {
				return errSchoolRequired
			}
			pwd, err := promptPassword(cmd, true)
			if err != nil {
				return err
			}
			usr, err := cli.addUser(cmd.Context(), newAdmin{
				name:       name,
				username:   uname,
				email:      email,
				password:   pwd,
				schoolID:   schoolID,
				superAdmin: superAdmin,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "User %s saved (%s).\n", usr.Username, usr.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&uname, "username", "u", "", "Username")
	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Full name")
	cmd.Flags().StringVar(&schoolID, "school", "", "ID of the school a school admin manages")
	cmd.Flags().BoolVar(&superAdmin, "superadmin", false, "Grant the super admin role")
	return cmd
}

type newAdmin struct {
	name, username, email, password, schoolID string
	superAdmin                                bool
}

// addUser updates or creates an active admin user.User
func (cli *commandLine) addUser(ctx context.Context, na newAdmin) (user.User, error) {
	uname := core.CleanString(na.username, true /* lower */)
	email := core.CleanString(na.email, true /* lower */)

	if !na.superAdmin {
		if _, err := cli.schoolSvc.GetByID(ctx, na.schoolID); err != nil {
			return user.User{}, errors.Wrap(err, "finding school")
		}
	}

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{Username: uname})
	if core.IsNotFound(err) {
		usr, err = cli.usrRepo.GetUser(ctx, user.GetFilter{Email: email})
	}
	isNew := core.IsNotFound(err)
	if err != nil && !isNew {
		return user.User{}, err
	}

	now := core.NowFunc().UTC()
	if isNew {
		usr = user.User{
			ID:        uuid.New().String(),
			Username:  uname,
			Email:     email,
			CreatedAt: now,
		}
	}
	if na.name != "" {
		usr.Name = core.CleanString(na.name)
	}
	if na.superAdmin {
		usr.Roles = []string{user.RoleAdminSuper}
		usr.SchoolID = ""
	} else {
		usr.Roles = []string{user.RoleAdmin}
		usr.SchoolID = na.schoolID
	}
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(na.password); err != nil {
		return user.User{}, err
	}

	if isNew {
		if err = cli.usrRepo.CheckUniqueness(ctx, usr.Username, usr.Email); err != nil {
			return user.User{}, err
		}
		return cli.usrRepo.CreateUser(ctx, usr)
	}
	return cli.usrRepo.UpdateUser(ctx, usr)
}
