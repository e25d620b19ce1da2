package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/harun/mathroute/pkg/pipeline"
	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <query...>",
	Short: "Answer one math question",
	Long: `Answer one math question and exit. The words of the query may be passed
unquoted. With --json the full outcome is printed, including the routed
instruction, the raw engine result and the trace ID.`,
	Example: `  mathroute ask what is 17 times 3 plus 2
  mathroute ask --json "convert 10 km to miles"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full outcome as JSON")
	rootCmd.AddCommand(askCmd)
}

// answer is the JSON shape printed by ask --json
type answer struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Outcome pipeline.Outcome `json:"outcome"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer a.Close()

	query := strings.Join(args, " ")
	outcome := a.pipeline.HandleQuery(cmd.Context(), query)

	if err := printOutcome(cmd.OutOrStdout(), outcome, askJSON); err != nil {
		return err
	}
	if outcome.Status() == pipeline.StatusError {
		return fmt.Errorf("query failed: %s", outcome.Error.Kind)
	}
	return nil
}

func printOutcome(w io.Writer, outcome pipeline.Outcome, asJSON bool) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, outcome.Message())
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(answer{
		Status:  outcome.Status(),
		Message: outcome.Message(),
		Outcome: outcome,
	})
}
