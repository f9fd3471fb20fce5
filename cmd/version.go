package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitvcs/internal/buildinfo"
	"github.com/thiagokokada/gitvcs/internal/git/backend"
)

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gitvcs and git versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gitvcs %s\n", buildinfo.Read())
			runner, err := a.gitRunner(cmd)
			if err != nil {
				fmt.Fprintf(out, "git: %v\n", err)
				return nil
			}
			v, raw, err := runner.Version(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "git %s (%s)\n", v, raw)
			if !v.Supported() {
				fmt.Fprintf(out, "warning: git %s is older than %s, some commands may fail\n", v, backend.MinVersion)
			}
			return nil
		},
	}
}
