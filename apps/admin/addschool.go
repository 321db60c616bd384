package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/utulivu/core/school"
)

func (cli *commandLine) addSchoolCmd() *cobra.Command {
	var ns school.NewSchool
	cmd := &cobra.Command{
		Use:   "addschool",
		Short: "Register a school",
		RunE: func(cmd *cobra.Command, args []string) error {
			if ns.Name == "" || ns.Code == "" {
				_ = cmd.Help()
				return errHelp
			}
			sch, err := cli.addSchool(cmd.Context(), ns)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "School %s saved (%s).\n", sch.Code, sch.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&ns.Name, "name", "", "School name")
	cmd.Flags().StringVar(&ns.Code, "code", "", "Short unique code, eg. KLM")
	cmd.Flags().StringVar(&ns.Address, "address", "", "Postal address")
	return cmd
}

func (cli *commandLine) addSchool(ctx context.Context, ns school.NewSchool) (school.School, error) {
	if err := ns.Validate(cli.validate); err != nil {
		return school.School{}, err
	}
	return cli.schoolSvc.Create(ctx, ns)
}
