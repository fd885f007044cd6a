package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"senryaku/internal/config"
	"senryaku/internal/db"
	"senryaku/internal/domain"
	"senryaku/internal/engine"
	"senryaku/internal/engine/analytics"
	"senryaku/internal/migrate"
	"senryaku/internal/repo"
	"senryaku/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "senryaku",
	Short: "Senryaku CLI",
	Long: `Senryaku is a personal operations tracker built around time blocks.
Core concepts:
- Campaign: a long-running strategic effort with a priority rank and a weekly block target.
- Mission: a concrete milestone inside a campaign.
- Sortie: a single work session (1-4 blocks) under a mission.
- AAR: the after-action report logged when a sortie ends; AARs drive every metric.
- Check-in: today's energy level and available blocks.
The briefing, dashboard, drift report and weekly review are computed from this
data; nothing is tracked passively.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("SENRYAKU")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(campaignCmd())
	rootCmd.AddCommand(missionCmd())
	rootCmd.AddCommand(sortieCmd())
	rootCmd.AddCommand(checkinCmd())
	rootCmd.AddCommand(briefingCmd())
	rootCmd.AddCommand(routeCmd())
	rootCmd.AddCommand(dashboardCmd())
	rootCmd.AddCommand(driftCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialise workspace and default config",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfgPath := config.Path(workspace)
			if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
				if err := os.WriteFile(cfgPath, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Println("wrote", cfgPath)
			}
			fmt.Println("database at", db.Path(workspace))
			return nil
		},
	}
}

func campaignCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "campaign", Short: "Manage campaigns"}
	cmd.AddCommand(campaignCreateCmd())
	cmd.AddCommand(campaignListCmd())
	cmd.AddCommand(campaignShowCmd())
	cmd.AddCommand(campaignUpdateCmd())
	cmd.AddCommand(campaignArchiveCmd())
	cmd.AddCommand(campaignRerankCmd())
	return cmd
}

func campaignCreateCmd() *cobra.Command {
	var name, desc, colour, tags, targetDate string
	var rank, target int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create campaign",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCampaign(ctx, engine.CampaignCreateOptions{
					Name:              name,
					Description:       desc,
					PriorityRank:      rank,
					WeeklyBlockTarget: target,
					Colour:            colour,
					Tags:              tags,
					TargetDate:        targetDate,
				})
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "campaign name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().IntVar(&rank, "rank", 1, "priority rank (1 = highest)")
	cmd.Flags().IntVar(&target, "target", 0, "weekly block target")
	cmd.Flags().StringVar(&colour, "colour", "", "display colour")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&targetDate, "target-date", "", "target date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func campaignListCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List campaigns by priority rank",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListCampaigns(ctx, domain.CampaignStatus(status))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"Rank", "Name", "Status", "Target", "ID"})
				for _, c := range items {
					t.AppendRow(table.Row{c.PriorityRank, c.Name, c.Status, c.WeeklyBlockTarget, c.ID})
				}
				t.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active, paused, archived)")
	return cmd
}

func campaignShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <campaign-id>",
		Short: "Show campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				c, err := r.GetCampaign(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
}

func campaignUpdateCmd() *cobra.Command {
	var name, desc, status, colour, tags, targetDate string
	var rank, target int
	cmd := &cobra.Command{
		Use:   "update <campaign-id>",
		Short: "Update campaign",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.CampaignUpdateOptions{ID: args[0]}
				if cmd.Flags().Changed("name") {
					opts.Name = &name
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &desc
				}
				if cmd.Flags().Changed("status") {
					s := domain.CampaignStatus(status)
					opts.Status = &s
				}
				if cmd.Flags().Changed("rank") {
					opts.PriorityRank = &rank
				}
				if cmd.Flags().Changed("target") {
					opts.WeeklyBlockTarget = &target
				}
				if cmd.Flags().Changed("colour") {
					opts.Colour = &colour
				}
				if cmd.Flags().Changed("tags") {
					opts.Tags = &tags
				}
				if cmd.Flags().Changed("target-date") {
					opts.TargetDate = &targetDate
				}
				c, err := e.UpdateCampaign(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "campaign name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status (active, paused, archived)")
	cmd.Flags().IntVar(&rank, "rank", 0, "priority rank")
	cmd.Flags().IntVar(&target, "target", 0, "weekly block target")
	cmd.Flags().StringVar(&colour, "colour", "", "display colour")
	cmd.Flags().StringVar(&tags, "tags", "", "comma-separated tags")
	cmd.Flags().StringVar(&targetDate, "target-date", "", "target date (YYYY-MM-DD)")
	return cmd
}

func campaignArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <campaign-id>",
		Short: "Archive campaign (soft delete)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.ArchiveCampaign(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
}

func campaignRerankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rerank <id=rank> [<id=rank> ...]",
		Short: "Bulk update priority ranks",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var ranks []engine.RankUpdate
			for _, arg := range args {
				parts := strings.SplitN(arg, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("expected id=rank, got %q", arg)
				}
				var rank int
				if _, err := fmt.Sscanf(parts[1], "%d", &rank); err != nil {
					return fmt.Errorf("invalid rank in %q", arg)
				}
				ranks = append(ranks, engine.RankUpdate{ID: parts[0], Rank: rank})
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.RerankCampaigns(ctx, ranks)
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
	return cmd
}

func missionCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "mission", Short: "Manage missions"}
	cmd.AddCommand(missionCreateCmd())
	cmd.AddCommand(missionListCmd())
	cmd.AddCommand(missionUpdateCmd())
	cmd.AddCommand(missionCompleteCmd())
	return cmd
}

func missionCreateCmd() *cobra.Command {
	var campaignID, name, desc, targetDate string
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create mission",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				m, err := e.CreateMission(ctx, engine.MissionCreateOptions{
					CampaignID:  campaignID,
					Name:        name,
					Description: desc,
					SortOrder:   sortOrder,
					TargetDate:  targetDate,
				})
				if err != nil {
					return err
				}
				return printJSON(m)
			})
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "campaign id")
	cmd.Flags().StringVar(&name, "name", "", "mission name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().IntVar(&sortOrder, "order", 0, "sort order")
	cmd.Flags().StringVar(&targetDate, "target-date", "", "target date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("campaign")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func missionListCmd() *cobra.Command {
	var campaignID, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List missions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListMissions(ctx, repo.MissionFilters{
					CampaignID: campaignID,
					Status:     domain.MissionStatus(status),
				})
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
	cmd.Flags().StringVar(&campaignID, "campaign", "", "filter by campaign id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func missionUpdateCmd() *cobra.Command {
	var name, desc, status, targetDate string
	var sortOrder int
	cmd := &cobra.Command{
		Use:   "update <mission-id>",
		Short: "Update mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.MissionUpdateOptions{ID: args[0]}
				if cmd.Flags().Changed("name") {
					opts.Name = &name
				}
				if cmd.Flags().Changed("description") {
					opts.Description = &desc
				}
				if cmd.Flags().Changed("status") {
					s := domain.MissionStatus(status)
					opts.Status = &s
				}
				if cmd.Flags().Changed("target-date") {
					opts.TargetDate = &targetDate
				}
				if cmd.Flags().Changed("order") {
					opts.SortOrder = &sortOrder
				}
				m, err := e.UpdateMission(ctx, opts)
				if err != nil {
					return err
				}
				return printJSON(m)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "mission name")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&status, "status", "", "status (not_started, in_progress, blocked, completed)")
	cmd.Flags().StringVar(&targetDate, "target-date", "", "target date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&sortOrder, "order", 0, "sort order")
	return cmd
}

func missionCompleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "complete <mission-id>",
		Short: "Mark mission completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				completed := domain.MissionCompleted
				m, err := e.UpdateMission(ctx, engine.MissionUpdateOptions{ID: args[0], Status: &completed})
				if err != nil {
					return err
				}
				return printJSON(m)
			})
		},
	}
}

func sortieCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sortie", Short: "Manage sorties"}
	cmd.AddCommand(sortieCreateCmd())
	cmd.AddCommand(sortieListCmd())
	cmd.AddCommand(sortieStartCmd())
	cmd.AddCommand(sortieCompleteCmd())
	cmd.AddCommand(sortieMoveCmd())
	cmd.AddCommand(sortieAbandonCmd())
	return cmd
}

func sortieCreateCmd() *cobra.Command {
	var missionID, title, desc, load string
	var blocks, sortOrder int
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create sortie",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.CreateSortie(ctx, engine.SortieCreateOptions{
					MissionID:       missionID,
					Title:           title,
					Description:     desc,
					CognitiveLoad:   domain.CognitiveLoad(load),
					EstimatedBlocks: blocks,
					SortOrder:       sortOrder,
				})
				if err != nil {
					return err
				}
				return printJSON(s)
			})
		},
	}
	cmd.Flags().StringVar(&missionID, "mission", "", "mission id")
	cmd.Flags().StringVar(&title, "title", "", "sortie title")
	cmd.Flags().StringVar(&desc, "description", "", "description")
	cmd.Flags().StringVar(&load, "load", "medium", "cognitive load (deep, medium, light)")
	cmd.Flags().IntVar(&blocks, "blocks", 1, "estimated blocks")
	cmd.Flags().IntVar(&sortOrder, "order", 0, "sort order")
	_ = cmd.MarkFlagRequired("mission")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func sortieListCmd() *cobra.Command {
	var missionID, status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sorties",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListSorties(ctx, repo.SortieFilters{
					MissionID: missionID,
					Status:    domain.SortieStatus(status),
				})
				if err != nil {
					return err
				}
				return printJSON(items)
			})
		},
	}
	cmd.Flags().StringVar(&missionID, "mission", "", "filter by mission id")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	return cmd
}

func sortieStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start <sortie-id>",
		Short: "Start sortie",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.StartSortie(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(s)
			})
		},
	}
}

func sortieCompleteCmd() *cobra.Command {
	var before, after, outcome, notes string
	var blocks int
	cmd := &cobra.Command{
		Use:   "complete <sortie-id>",
		Short: "Complete sortie with an after-action report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, a, err := e.CompleteSortie(ctx, engine.SortieCompleteOptions{
					SortieID:     args[0],
					EnergyBefore: domain.EnergyLevel(before),
					EnergyAfter:  domain.EnergyLevel(after),
					Outcome:      domain.AAROutcome(outcome),
					ActualBlocks: blocks,
					Notes:        notes,
				})
				if err != nil {
					return err
				}
				return printJSON(map[string]any{"sortie": s, "aar": a})
			})
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "energy before (green, yellow, red)")
	cmd.Flags().StringVar(&after, "after", "", "energy after (green, yellow, red)")
	cmd.Flags().StringVar(&outcome, "outcome", "completed", "outcome (completed, partial, blocked, pivoted)")
	cmd.Flags().IntVar(&blocks, "blocks", 1, "actual blocks spent")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("before")
	_ = cmd.MarkFlagRequired("after")
	return cmd
}

func sortieMoveCmd() *cobra.Command {
	var missionID string
	cmd := &cobra.Command{
		Use:   "move <sortie-id>",
		Short: "Move sortie to another mission",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.MoveSortie(ctx, args[0], missionID)
				if err != nil {
					return err
				}
				return printJSON(s)
			})
		},
	}
	cmd.Flags().StringVar(&missionID, "mission", "", "target mission id")
	_ = cmd.MarkFlagRequired("mission")
	return cmd
}

func sortieAbandonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "abandon <sortie-id>",
		Short: "Abandon sortie (soft delete)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.AbandonSortie(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSON(s)
			})
		},
	}
}

func checkinCmd() *cobra.Command {
	var date, energy, note string
	var blocks int
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Record today's energy and available blocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CheckIn(ctx, engine.CheckInOptions{
					Date:            date,
					EnergyLevel:     domain.EnergyLevel(energy),
					AvailableBlocks: blocks,
					FocusNote:       note,
				})
				if err != nil {
					return err
				}
				return printJSON(c)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD, defaults to today)")
	cmd.Flags().StringVar(&energy, "energy", "", "energy level (green, yellow, red)")
	cmd.Flags().IntVar(&blocks, "blocks", 4, "available blocks")
	cmd.Flags().StringVar(&note, "note", "", "focus note")
	_ = cmd.MarkFlagRequired("energy")
	return cmd
}

func briefingCmd() *cobra.Command {
	var energy string
	var markdown bool
	cmd := &cobra.Command{
		Use:   "briefing",
		Short: "Generate today's briefing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				b, err := e.TodayBriefing(ctx, domain.EnergyLevel(energy))
				if err != nil {
					return err
				}
				if markdown {
					fmt.Println(analytics.BriefingMarkdown(b))
					return nil
				}
				return printJSON(b)
			})
		},
	}
	cmd.Flags().StringVar(&energy, "energy", "", "override energy level")
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render as markdown")
	return cmd
}

func routeCmd() *cobra.Command {
	var energy string
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Show the single best next sortie",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, ok, err := e.RouteSortie(ctx, domain.EnergyLevel(energy))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("no routable sortie for this energy level")
					return nil
				}
				return printJSON(s)
			})
		},
	}
	cmd.Flags().StringVar(&energy, "energy", "green", "energy level")
	return cmd
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Campaign health dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rows, err := e.Dashboard(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(rows)
				}
				t := table.NewWriter()
				t.SetOutputMirror(os.Stdout)
				t.AppendHeader(table.Row{"Rank", "Campaign", "Health", "Velocity", "Target", "Stale (d)", "Missions", "Next Sortie"})
				for _, row := range rows {
					t.AppendRow(table.Row{
						row.PriorityRank, row.Name, row.Health, row.Velocity, row.WeeklyBlockTarget,
						row.StalenessDays, fmt.Sprintf("%d/%d", row.MissionsCompleted, row.MissionsTotal), row.NextSortieTitle,
					})
				}
				t.Render()
				return nil
			})
		},
	}
}

func driftCmd() *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Drift report: stated priorities vs real allocation",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				report, err := e.DriftReport(ctx)
				if err != nil {
					return err
				}
				if markdown {
					fmt.Println(analytics.DriftMarkdown(report))
					return nil
				}
				return printJSON(report)
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render as markdown")
	return cmd
}

func reviewCmd() *cobra.Command {
	var markdown bool
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Generate the weekly review",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				rv, err := e.WeeklyReview(ctx)
				if err != nil {
					return err
				}
				if markdown {
					fmt.Println(analytics.WeeklyReviewMarkdown(rv))
					return nil
				}
				return printJSON(rv)
			})
		},
	}
	cmd.Flags().BoolVar(&markdown, "markdown", false, "render as markdown")
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Event log",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSON(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				APIKey:    cfg.Server.APIKey,
				JWTSecret: os.Getenv("SENRYAKU_JWT_SECRET"),
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e)
			if sched := server.StartScheduler(e); sched != nil {
				defer sched.Stop()
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Senryaku API on http://%s%s (OpenAPI at %s/openapi.json, Swagger UI at /docs)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
