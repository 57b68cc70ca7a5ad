package main

import (
	"fmt"

	"pulse/internal/app"
	"pulse/internal/seed"

	"github.com/spf13/cobra"
)

var (
	seedOpts  = seed.DefaultOptions
	seedLogin bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace all posts with generated demo data",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withRuntime(cmd.Context(), func(rt *app.Runtime) error {
			data, err := seed.Run(cmd.Context(), rt.Content, rt.Session, seedOpts, seedLogin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d posts from %d users\n", len(data.Posts), len(data.Users))
			if seedLogin && len(data.Users) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s <%s>\n", data.Users[0].Name, data.Users[0].Email)
			}
			return nil
		})
	},
}

func init() {
	f := seedCmd.Flags()
	f.IntVar(&seedOpts.NumUsers, "users", seedOpts.NumUsers, "number of demo users")
	f.IntVar(&seedOpts.NumPosts, "posts", seedOpts.NumPosts, "number of posts")
	f.IntVar(&seedOpts.MaxDays, "days", seedOpts.MaxDays, "spread posts over this many days")
	f.IntVar(&seedOpts.MaxComments, "comments", seedOpts.MaxComments, "maximum comments per post")
	f.Int64Var(&seedOpts.Seed, "seed", 0, "random seed, 0 for a random one")
	f.BoolVar(&seedLogin, "login", false, "log in as the first generated user")
}
