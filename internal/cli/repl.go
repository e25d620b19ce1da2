package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

const replPrompt = "\nAsk a math question (or type 'exit'): "

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Ask questions interactively",
	Long: `Read questions line by line and answer each one. Type "exit" or "quit",
or send EOF, to leave. Each line is an independent query; nothing carries
over between questions.`,
	Args: cobra.NoArgs,
	RunE: runRepl,
}

func init() {
	rootCmd.AddCommand(replCmd)
}

func runRepl(cmd *cobra.Command, _ []string) error {
	a, err := bootstrap(true)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 4096), 64<<10)

	for {
		fmt.Fprint(out, replPrompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		outcome := a.pipeline.HandleQuery(cmd.Context(), line)
		if err := printOutcome(out, outcome, false); err != nil {
			return err
		}
	}
}
