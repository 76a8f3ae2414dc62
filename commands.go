package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/cppla/discourse/board"
	"github.com/cppla/discourse/config"
	"github.com/cppla/discourse/gateway/sqlstore"
	"github.com/cppla/discourse/models"
	"github.com/cppla/discourse/routes"
	"github.com/cppla/discourse/utils"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg := config.Get()
	a, err := newApp(cfg)
	if err != nil {
		return err
	}

	a.boot.Start()
	r := routes.SetupRouter(routes.Deps{
		Config:      cfg,
		Gateway:     a.gateway,
		Board:       a.board,
		Boot:        a.boot,
		Drafts:      board.NewDraftStore(a.redis, time.Duration(cfg.DraftTTLHours)*time.Hour),
		Prefs:       board.NewPreferenceStore(a.redis),
		StorageRoot: a.storageRoot,
	})

	utils.Sugar.Infof("Starting server on port %s with the %s gateway (graceful)", cfg.AppPort, cfg.GatewayDriver)
	err = utils.GraceServer(":"+cfg.AppPort, r, a.boot.Stop, a.close)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or extend the tables of the sql gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Get()
			db, err := config.InitDatabase(cfg)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if err := sqlstore.Migrate(db); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			utils.Sugar.Infow("migration complete", "driver", cfg.DBDriver)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

func newPostsCmd() *cobra.Command {
	posts := &cobra.Command{
		Use:   "posts",
		Short: "Read posts from the configured gateway",
	}

	var search, category, sort string
	list := &cobra.Command{
		Use:   "list",
		Short: "List posts with the board's search, category and sort",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := board.ParseSortMode(sort)
			if err != nil {
				return err
			}
			a, err := newApp(config.Get())
			if err != nil {
				return err
			}
			defer a.close()

			rows, err := a.board.ListPosts(cmd.Context(), board.ListParams{Search: search, Category: category, Sort: mode})
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), board.MsgNoPosts)
				return nil
			}
			return writePosts(cmd.OutOrStdout(), rows)
		},
	}
	list.Flags().StringVarP(&search, "search", "s", "", "search title and content; comma separated terms also match tags")
	list.Flags().StringVar(&category, "category", board.AllCategories, "category filter")
	list.Flags().StringVar(&sort, "sort", string(board.SortNew), "sort by new, upvotes or views")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one post with its comments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(config.Get())
			if err != nil {
				return err
			}
			defer a.close()

			view := a.board.OpenPost(args[0])
			defer view.Close()
			if err := view.Load(cmd.Context()); err != nil {
				return err
			}
			writePost(cmd.OutOrStdout(), view.Snapshot())
			return nil
		},
	}

	posts.AddCommand(list, show)
	return posts
}

func writePosts(out io.Writer, rows []models.Post) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tUPVOTES\tVIEWS\tPOSTED")
	for _, p := range rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			p.ID, p.Title, p.Category, p.Upvotes, humanize.Comma(p.Views), humanize.Time(p.CreatedAt))
	}
	return tw.Flush()
}

func writePost(out io.Writer, snap board.PostSnapshot) {
	p := snap.Post
	if p == nil {
		return
	}
	fmt.Fprintf(out, "%s\n%s | %d upvotes | %s views | %s\n", p.Title, p.Category, snap.Upvotes, humanize.Comma(p.Views), humanize.Time(p.CreatedAt))
	if len(p.Tags) > 0 {
		fmt.Fprintf(out, "tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if url := lo.FromPtr(p.ImageURL); url != "" {
		fmt.Fprintf(out, "image: %s\n", url)
	}
	if snap.VideoID != "" {
		fmt.Fprintf(out, "video: https://www.youtube.com/watch?v=%s\n", snap.VideoID)
	}
	fmt.Fprintf(out, "\n%s\n\n%d comments\n", p.Content, len(snap.Comments))
	for _, c := range snap.Comments {
		who := "student"
		if c.IsFaculty {
			who = "faculty"
		}
		fmt.Fprintf(out, "- [%s, %s] %s\n", who, humanize.Time(c.CreatedAt), c.Content)
	}
}
