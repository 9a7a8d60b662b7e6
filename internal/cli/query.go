package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"editionlinks/internal/domain"
	"editionlinks/internal/index"
)

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <avis-id> <date>",
		Short: "List the titles an edition would be linked to",
		Long: `Query the title index for the titles an edition of the given avis id
issued on the given date belongs to, without touching the repository.

Example:
  editionlinks query aarhusstiftstidende 1855-02-01`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], args[1], cmd)
		},
	}
}

// QueryResult is the output of the query command
type QueryResult struct {
	AvisID string        `json:"avis_id"`
	Date   string        `json:"date"`
	Query  string        `json:"query"`
	Titles []domain.Item `json:"titles"`
}

func runQuery(opts *RootOptions, avisID, date string, cmd *cobra.Command) error {
	a, err := openApp(cmd, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	titles, err := index.NewTitleIndex(a.searcher).WantedTitles(cmd.Context(), avisID, date)
	if err != nil {
		return WrapExitError(ExitFailure, "title query failed", err)
	}

	result := QueryResult{
		AvisID: avisID,
		Date:   date,
		Query:  index.TitleQuery(avisID, date).Q,
		Titles: titles.Sorted(),
	}

	out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return out.Success(result, func(w io.Writer) {
		for _, title := range result.Titles {
			fmt.Fprintln(w, title)
		}
	})
}
