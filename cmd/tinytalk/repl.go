package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	tinytalk "github.com/tinylanders/tinytalk"
	"github.com/tinylanders/tinytalk/internal/ast"
	"github.com/tinylanders/tinytalk/internal/logging"
)

const helpText = `tinytalk interactive REPL

Commands:
  create <id> <tag1,tag2,...> [k=v,...]   Create an object
  update <id> <k=v,...>                   Patch an object's attributes
  drain                                    Run one drain of the reactive loop
  show                                     Print every object in the scene
  help                                     Show this help message
  exit / quit                              Exit the REPL

A value is a number if it parses as one, else a bare string.
`

func newReplCmd() *cobra.Command {
	var ruleFile string
	var logFormat string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Load a rule file and drive the scene interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(ruleFile, logFormat)
		},
	}

	cmd.Flags().StringVar(&ruleFile, "rules", defaultRuleFile, "rule file to load")
	cmd.Flags().StringVar(&logFormat, "log-format", defaultLogFormat, "log format (json or text)")

	return cmd
}

func runRepl(ruleFile, logFormat string) error {
	logger := logging.Setup("tinytalk-repl", logFormat)

	tt, err := tinytalk.New(logger)
	if err != nil {
		return fmt.Errorf("repl: %w", err)
	}

	if f, openErr := os.Open(ruleFile); openErr == nil {
		results, loadErr := tt.LoadRuleFile(f)
		f.Close()
		if loadErr != nil {
			return fmt.Errorf("repl: loading %s: %w", ruleFile, loadErr)
		}
		loaded := 0
		for _, r := range results {
			if r.Err != nil {
				logger.Warn("rule discarded", "source", r.Source, "error", r.Err)
				continue
			}
			loaded++
		}
		fmt.Printf("loaded %d/%d rules from %s\n", loaded, len(results), ruleFile)
	} else {
		fmt.Printf("no rule file at %s, starting with an empty rule table\n", ruleFile)
	}

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println(`Type "help" for available commands.`)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		switch strings.ToLower(parts[0]) {
		case "exit", "quit":
			return nil

		case "help":
			fmt.Print(helpText)

		case "show":
			for _, o := range tt.Objects() {
				fmt.Printf("  %s %v %v\n", o.ID, o.Tags, o.Attrs)
			}

		case "drain":
			if tt.Drain() {
				fmt.Println("drained: at least one rule fired")
			} else {
				fmt.Println("drained: nothing to do")
			}

		case "create":
			if len(parts) < 3 {
				fmt.Fprintln(os.Stderr, "usage: create <id> <tag1,tag2,...> [k=v,...]")
				continue
			}
			id := parts[1]
			tags := strings.Split(parts[2], ",")
			attrs, err := parseAttrs(parts[3:])
			if err != nil {
				fmt.Fprintf(os.Stderr, "bad attribute: %v\n", err)
				continue
			}
			tt.CreateObject(id, tags, attrs)
			fmt.Printf("created %s\n", id)

		case "update":
			if len(parts) < 3 {
				fmt.Fprintln(os.Stderr, "usage: update <id> <k=v,...>")
				continue
			}
			id := parts[1]
			attrs, err := parseAttrs(parts[2:])
			if err != nil {
				fmt.Fprintf(os.Stderr, "bad attribute: %v\n", err)
				continue
			}
			if _, err := tt.UpdateObject(id, attrs); err != nil {
				fmt.Fprintf(os.Stderr, "update error: %v\n", err)
				continue
			}
			fmt.Printf("updated %s\n", id)

		default:
			fmt.Fprintf(os.Stderr, "unknown command %q, type \"help\"\n", parts[0])
		}
	}
}

func parseAttrs(fields []string) (map[string]ast.Value, error) {
	attrs := make(map[string]ast.Value)
	for _, field := range fields {
		for _, pair := range strings.Split(field, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			kv := strings.SplitN(pair, "=", 2)
			if len(kv) != 2 {
				return nil, fmt.Errorf("expected k=v, got %q", pair)
			}
			key, raw := kv[0], kv[1]
			if n, err := strconv.ParseFloat(raw, 64); err == nil {
				attrs[key] = ast.Number(n)
			} else {
				attrs[key] = ast.Str(raw)
			}
		}
	}
	return attrs, nil
}
