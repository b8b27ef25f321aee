package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/echowall/echowall/internal/core"
	"github.com/echowall/echowall/internal/core/engine"
	"github.com/echowall/echowall/internal/core/store"
)

var (
	notesListPage   int
	notesListSize   int
	notesListSort   string
	notesListOutput string
)

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Inspect stored notes",
}

// notesListCmd is an admin utility that reads the local store directly,
// bypassing the HTTP API and its rate limiting.
var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored notes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := Config()

		db, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer db.Close() // nolint:errcheck // best-effort cleanup

		field, dir := notesListSortSpec()
		size := notesListSize
		if size < 1 {
			size = engine.DefaultPageSize
		}
		if size > engine.MaxPageSize {
			size = engine.MaxPageSize
		}
		page := notesListPage
		if page < 0 {
			page = 0
		}

		result, err := db.ListNotes(cmd.Context(), core.NoteQuery{
			Page:      page,
			Size:      size,
			SortField: field,
			SortDir:   dir,
		})
		if err != nil {
			return err
		}

		switch strings.ToLower(strings.TrimSpace(notesListOutput)) {
		case "", "table":
			fmt.Println(renderNotesTable(result))
			return nil
		case "json":
			payload, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(payload))
			return nil
		default:
			return fmt.Errorf("unsupported output format: %s", notesListOutput)
		}
	},
}

func notesListSortSpec() (string, core.SortDirection) {
	field, dirRaw, _ := strings.Cut(notesListSort, ",")
	field = strings.TrimSpace(field)
	if field == "" {
		field = engine.DefaultSortField
	}
	dir := core.SortDesc
	if strings.EqualFold(strings.TrimSpace(dirRaw), string(core.SortAsc)) {
		dir = core.SortAsc
	}
	return field, dir
}

func renderNotesTable(result *core.NotePage) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"ID", "Author", "Message", "Created At"})

	for _, note := range result.Items {
		if note == nil {
			continue
		}
		author := ""
		if note.Author != nil {
			author = *note.Author
		}
		t.AppendRow(table.Row{
			note.ID,
			author,
			truncate(note.Message, 60),
			note.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}

	t.AppendFooter(table.Row{
		"",
		"",
		fmt.Sprintf("page %d/%d", result.Page, result.TotalPages),
		fmt.Sprintf("%d total", result.TotalItems),
	})

	return t.Render()
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.AddCommand(notesListCmd)

	notesListCmd.Flags().IntVar(&notesListPage, "page", 0, "page number (0-indexed)")
	notesListCmd.Flags().IntVar(&notesListSize, "size", engine.DefaultPageSize, "page size (max 100)")
	notesListCmd.Flags().StringVar(&notesListSort, "sort", "createdAt,desc", "sort field and direction")
	notesListCmd.Flags().StringVarP(&notesListOutput, "output", "o", "table", "output format (table|json)")
}
