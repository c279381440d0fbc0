package service

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"forumhub/app/models"
	"forumhub/app/repositories"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newUsersCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect forum members",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			users, err := store.Users.List(limit, 0)
			if err != nil {
				return err
			}
			renderUsers(cmd.OutOrStdout(), users)
			return nil
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum number of users to show (0 for all)")

	cmd.AddCommand(listCmd)
	return cmd
}

func newPostsCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "Inspect forum posts",
	}

	var limit int
	var author string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List posts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			store, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			var posts []*models.Post
			if author != "" {
				posts, err = store.Posts.ListByAuthor(author, limit, 0)
			} else {
				posts, err = store.Posts.List(limit, 0)
			}
			if err != nil {
				return err
			}
			return renderPosts(cmd.OutOrStdout(), store, posts)
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of posts to show (0 for all)")
	listCmd.Flags().StringVar(&author, "author", "", "only show posts by this user ID")

	cmd.AddCommand(listCmd)
	return cmd
}

func renderUsers(out io.Writer, users []*models.User) {
	if len(users) == 0 {
		color.New(color.FgYellow).Fprintln(out, "No users yet")
		return
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Email", "Nickname", "Notifications", "Joined"})
	for _, u := range users {
		table.Append([]string{
			u.ID,
			u.Email,
			u.DisplayName,
			strconv.FormatBool(u.Settings.NotificationsEnabled),
			u.CreatedAt.Format(time.DateOnly),
		})
	}
	table.Render()
	color.New(color.Bold).Fprintf(out, "%d user(s)\n", len(users))
}

func renderPosts(out io.Writer, store *repositories.Store, posts []*models.Post) error {
	if len(posts) == 0 {
		color.New(color.FgYellow).Fprintln(out, "No posts yet")
		return nil
	}

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Title", "Author", "Likes", "Replies", "Created"})
	for _, p := range posts {
		replies, err := store.Replies.CountByPost(p.ID)
		if err != nil {
			return err
		}
		likes := strconv.Itoa(p.LikeCount)
		if p.LikeCount > 0 {
			likes = color.GreenString(likes)
		}
		table.Append([]string{
			strconv.Itoa(p.ID),
			truncate(p.Title, 40),
			p.AuthorName,
			likes,
			strconv.Itoa(replies),
			p.CreatedAt.Format(time.DateTime),
		})
	}
	table.Render()
	color.New(color.Bold).Fprintf(out, "%d post(s)\n", len(posts))
	return nil
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return fmt.Sprintf("%s...", string(r[:max-3]))
}
