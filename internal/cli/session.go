package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mcoot/cfratings/internal/model"
)

func newLoginCmd() *cobra.Command {
	var user, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in to the community platform",
		RunE: func(cmd *cobra.Command, args []string) error {
			if user == "" || pass == "" {
				return fmt.Errorf("--user and --pass are required")
			}

			result, err := client.Login(cmd.Context(), user, pass)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(*result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and forget the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Logout(cmd.Context()); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.PrintMessage("Logged out")
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current login and group selection",
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := client.GetAuthState(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(state)
			return nil
		},
	}
}

func newGroupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List the groups available to the logged-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := client.ListGroups(cmd.Context())
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(GroupList(groups))
			return nil
		},
	}
}

func newSelectGroupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "select-group <group-id|none>",
		Short: "Select the group whose ratings are shown",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := NewOutput(cfg.Output, cmd.OutOrStdout())

			if strings.EqualFold(args[0], "none") {
				if err := client.SetSelectedGroup(ctx, nil); err != nil {
					return err
				}
				out.PrintMessage("Group selection cleared")
				return nil
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid group id %q", args[0])
			}

			group := model.Group{ID: model.GroupID(id)}
			groups, err := client.ListGroups(ctx)
			if err != nil {
				return err
			}
			for _, g := range groups {
				if g.ID == group.ID {
					group = g
					break
				}
			}

			if err := client.SetSelectedGroup(ctx, &group); err != nil {
				return err
			}

			out.Print(group)
			return nil
		},
	}
}

func newRatingsCmd() *cobra.Command {
	var groupID int64

	cmd := &cobra.Command{
		Use:   "ratings <username>...",
		Short: "Look up community ratings for usernames",
		Long: `Look up community ratings for usernames in a group.

Without --group the currently selected group is used.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			gid := model.GroupID(groupID)
			if gid == 0 {
				state, err := client.GetAuthState(ctx)
				if err != nil {
					return err
				}
				if state.HasGroup() {
					gid = state.SelectedGroup.ID
				}
			}

			ratings, err := client.FetchUserRatings(ctx, args, gid)
			if err != nil {
				return err
			}

			rows := make(RatingList, 0, len(ratings))
			for _, r := range ratings {
				rows = append(rows, NewRatingRow(r))
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(rows)
			return nil
		},
	}

	cmd.Flags().Int64Var(&groupID, "group", 0, "Group ID (default: selected group)")

	return cmd
}
