package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/brainbrew/internal/tutor"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [session-id]",
	Short: "List past study sessions or print one transcript",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := bootstrap(ctx, bootOptions{})
		if err != nil {
			return err
		}
		defer d.Close()
		repo := d.Store.ExchangeRepo()

		if len(args) == 1 {
			entries, err := repo.BySession(ctx, args[0])
			if err != nil {
				return fmt.Errorf("load session: %w", err)
			}
			if len(entries) == 0 || entries[0].UserID != cfg.User {
				return fmt.Errorf("session %s not found", args[0])
			}
			for _, e := range entries {
				label := "You"
				if e.Role == string(tutor.RoleTutor) {
					label = "Tutor"
					if d := tutor.Difficulty(e.Difficulty); d.Valid() {
						label += " · " + d.String()
					}
				}
				fmt.Printf("%s  %s\n", e.CreatedAt.Local().Format("15:04:05"), label)
				fmt.Println(indent(e.Text, "  "))
				fmt.Println()
			}
			return nil
		}

		limit, _ := cmd.Flags().GetInt("limit")
		sessions, err := repo.Sessions(ctx, cfg.User, limit)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No study sessions recorded yet.")
			return nil
		}

		titles := make(map[string]string)
		if recs, err := d.Library.List(ctx, cfg.User); err == nil {
			for _, r := range recs {
				titles[r.ID] = r.FileName
			}
		}

		fmt.Printf("%-36s  %-16s  %-28s  %8s  %s\n", "Session", "Started", "Document", "Messages", "Duration")
		fmt.Println(strings.Repeat("─", 104))
		for _, s := range sessions {
			title := "pasted text"
			if s.DocumentID != "" {
				title = titles[s.DocumentID]
				if title == "" {
					title = "(deleted)"
				}
			}
			fmt.Printf("%-36s  %-16s  %-28s  %8d  %s\n",
				s.SessionID,
				s.StartedAt.Local().Format("2006-01-02 15:04"),
				truncate(title, 28),
				s.Entries,
				s.LastAt.Sub(s.StartedAt).Round(time.Second),
			)
		}
		return nil
	},
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

func init() {
	historyCmd.Flags().IntP("limit", "n", 20, "Number of sessions to show")
}
