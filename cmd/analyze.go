package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/abhisek/brainbrew/internal/tutor"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Extract the key topics and concepts of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		ctx := cmd.Context()

		d, err := bootstrap(ctx, bootOptions{LLM: true})
		if err != nil {
			return err
		}
		defer d.Close()

		name, contentType, data, err := readDocument(args[0])
		if err != nil {
			return err
		}
		analysis, err := d.Content.Analyze(ctx, tutor.Document{Name: name, ContentType: contentType, Data: data})
		if err != nil {
			return fmt.Errorf("analyze %s: %s", name, tutor.UserMessage(err))
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"file":       name,
				"characters": len(analysis.Text),
				"topics":     analysis.Topics,
				"concepts":   analysis.Concepts,
			})
		}

		fmt.Printf("%s (%d characters)\n", name, len(analysis.Text))
		printList("Topics", analysis.Topics)
		printList("Concepts", analysis.Concepts)
		return nil
	},
}

func printList(title string, items []string) {
	fmt.Println()
	fmt.Println(title)
	fmt.Println(strings.Repeat("─", 40))
	if len(items) == 0 {
		fmt.Println("(none)")
		return
	}
	for _, it := range items {
		fmt.Println("  •", it)
	}
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "Print the analysis as JSON")
}
