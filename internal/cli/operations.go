package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/harun/mathroute/pkg/registry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var operationsFormat string

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the operations a query can be routed to",
	Long: `List every operation exposed after the tools.allow and tools.deny policy
is applied, with its parameters.`,
	Args: cobra.NoArgs,
	RunE: runOperations,
}

func init() {
	operationsCmd.Flags().StringVar(&operationsFormat, "format", "table", "output format: table, json or yaml")
	rootCmd.AddCommand(operationsCmd)
}

func runOperations(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	reg, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	return writeOperations(cmd.OutOrStdout(), reg.Operations(), operationsFormat)
}

func writeOperations(w io.Writer, ops []registry.Operation, format string) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ops)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(ops); err != nil {
			return err
		}
		return enc.Close()
	case "table", "":
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TOOL\tOPERATION\tPARAMETERS\tDESCRIPTION")
		for _, op := range ops {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", op.Tool, op.Name, signature(op.Params), op.Description)
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown format %q (use table, json or yaml)", format)
	}
}

func signature(params []registry.Param) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Name+":"+string(p.Type))
	}
	return strings.Join(parts, ", ")
}
