package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/gitvcs/internal/git"
)

func newInitCmd(a *app) *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "init [url]",
		Short: "Create an empty repository, optionally with a remote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd)
			if err != nil {
				return err
			}
			name := a.cfg.Remote
			if cmd.Flags().Changed("remote") {
				name = remote
			}
			return r.Init(cmd.Context(), optionalArg(args, 0), name)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "name of the remote pointing to url (default from config, else "+git.DefaultRemote+")")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	var seed string
	cmd := &cobra.Command{
		Use:   "create <path>",
		Short: "Create a repository, optionally seeded with the content of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := a.gitRunner(cmd)
			if err != nil {
				return err
			}
			path, err := git.Create(cmd.Context(), runner, args[0], seed, git.WithLogger(a.logger))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "directory whose content becomes the first commit")
	return cmd
}

func newCheckoutCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "checkout <ref>",
		Short: "Check out a branch, tag or commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd)
			if err != nil {
				return err
			}
			return r.Checkout(cmd.Context(), args[0], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "throw away local changes")
	return cmd
}

func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [commit]",
		Short: "Name a commit after the closest tag",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd)
			if err != nil {
				return err
			}
			desc, err := r.Describe(cmd.Context(), optionalArg(args, 0))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		},
	}
}

func newRevParseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rev-parse [ref]",
		Short: "Resolve a ref to a commit hash",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd)
			if err != nil {
				return err
			}
			sha, err := r.RevParse(cmd.Context(), optionalArg(args, 0))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sha)
			return nil
		},
	}
}

func newFetchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <url> [refspec]",
		Short: "Fetch from a remote repository",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd)
			if err != nil {
				return err
			}
			return r.Fetch(cmd.Context(), args[0], optionalArg(args, 1))
		},
	}
}

func newUpdateCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "update <url> <refspec>",
		Short: "Fetch refspec and check out what was fetched",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd)
			if err != nil {
				return err
			}
			return r.Update(cmd.Context(), args[0], args[1], force)
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "throw away local changes")
	return cmd
}

func newFetchReviewNotesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch-review-notes <url>",
		Short: "Fetch the code review notes (" + git.ReviewNotesRef + ")",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := a.repository(cmd)
			if err != nil {
				return err
			}
			return r.FetchReviewNotes(cmd.Context(), args[0])
		},
	}
}
