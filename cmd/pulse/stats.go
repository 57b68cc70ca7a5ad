package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"pulse/internal/app"
	"pulse/internal/feed"

	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show community totals, trending tags and active users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(rt *app.Runtime) error {
			posts := rt.Content.Posts()
			stats := feed.DeriveCommunityStats(posts)
			tags := feed.DeriveTrendingTags(posts)
			users := feed.DeriveActiveUsers(posts)

			out := cmd.OutOrStdout()
			if statsJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]interface{}{
					"stats":       stats,
					"tags":        tags,
					"activeUsers": users,
				})
			}

			fmt.Fprintf(out, "posts: %d  likes: %d  comments: %d\n", stats.Posts, stats.Likes, stats.Comments)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\nTRENDING\tCOUNT")
			for _, t := range tags {
				fmt.Fprintf(tw, "%s\t%d\n", t.Tag, t.Count)
			}
			fmt.Fprintln(tw, "\nACTIVE USER\tPOSTS\tLIKES")
			for _, u := range users {
				fmt.Fprintf(tw, "%s\t%d\t%d\n", u.Name, u.Posts, u.Likes)
			}
			return tw.Flush()
		})
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print JSON")
}
