package cmd

import (
	"fmt"
	"strings"

	"github.com/abhisek/brainbrew/internal/store"
	"github.com/abhisek/brainbrew/internal/tutor"
	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Manage the document library",
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Analyse files and add them to the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := bootstrap(ctx, bootOptions{LLM: true})
		if err != nil {
			return err
		}
		defer d.Close()

		var failed int
		for _, path := range args {
			m, err := materialFromFile(ctx, d, path, true)
			if err != nil {
				fmt.Println("✗", err)
				failed++
				continue
			}
			fmt.Printf("✓ %s  %s\n", m.DocumentID, m.Title)
			if len(m.Topics) > 0 {
				fmt.Printf("    %s\n", strings.Join(m.Topics, ", "))
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files failed", failed, len(args))
		}
		return nil
	},
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents in the library",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := bootstrap(ctx, bootOptions{})
		if err != nil {
			return err
		}
		defer d.Close()

		recs, err := d.Library.List(ctx, cfg.User)
		if err != nil {
			return fmt.Errorf("list documents: %s", tutor.UserMessage(err))
		}
		if len(recs) == 0 {
			fmt.Println("No documents yet. Add one with: brainbrew docs upload <file>")
			return nil
		}

		fmt.Printf("%-36s  %-16s  %8s  %-28s  %s\n", "ID", "Added", "Size", "File", "Topics")
		fmt.Println(strings.Repeat("─", 110))
		for _, r := range recs {
			fmt.Printf("%-36s  %-16s  %8s  %-28s  %s\n",
				r.ID,
				r.CreatedAt.Local().Format("2006-01-02 15:04"),
				formatSize(r.FileSize),
				truncate(r.FileName, 28),
				strings.Join(r.Topics, ", "),
			)
		}
		return nil
	},
}

var docsURLCmd = &cobra.Command{
	Use:   "url <id>",
	Short: "Print a link to the stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := bootstrap(ctx, bootOptions{})
		if err != nil {
			return err
		}
		defer d.Close()

		if _, err := ownedDocument(cmd, d, args[0]); err != nil {
			return err
		}
		u, err := d.Library.URL(ctx, args[0])
		if err != nil {
			return fmt.Errorf("document url: %s", tutor.UserMessage(err))
		}
		fmt.Println(u)
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove a document and its stored file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		d, err := bootstrap(ctx, bootOptions{})
		if err != nil {
			return err
		}
		defer d.Close()

		doc, err := ownedDocument(cmd, d, args[0])
		if err != nil {
			return err
		}
		if err := d.Library.Delete(ctx, doc.ID); err != nil {
			return fmt.Errorf("delete document: %s", tutor.UserMessage(err))
		}
		fmt.Printf("Deleted %s (%s)\n", doc.ID, doc.FileName)
		return nil
	},
}

// ownedDocument loads a document of the configured user. Documents of other
// users are reported as missing.
func ownedDocument(cmd *cobra.Command, d *deps, id string) (*store.Document, error) {
	doc, err := d.Library.Document(cmd.Context(), id)
	if err == nil && doc.UserID != cfg.User {
		err = tutor.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("document %s: %s", id, tutor.UserMessage(err))
	}
	return doc, nil
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

func init() {
	docsCmd.AddCommand(docsUploadCmd)
	docsCmd.AddCommand(docsListCmd)
	docsCmd.AddCommand(docsURLCmd)
	docsCmd.AddCommand(docsDeleteCmd)
}
