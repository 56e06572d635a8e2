/*
Command iadump replays scripts of indexed array operations and prints the
resulting trie.

	iadump run ops.txt          # execute a script, echoing results
	iadump dump --format dot ops.txt
	iadump version

A script holds one operation per line; see 'iadump run --help'.
*/
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/npillmayer/iarray"
	"github.com/npillmayer/iarray/html"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const version = "0.3.0"

var (
	traceLevel  string
	memoryLimit int64
	dumpFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "iadump",
	Short: "Replay indexed array operations and inspect the trie",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
		return setupTracing(traceLevel)
	},
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Execute a script, printing the result of each operation",
	Long: `Execute a script, printing the result of each operation.

Operations (indices, orders and values are unsigned integers; a value
'ptr:<name>' stores a pointer entry, '-' denotes the empty entry):

  store <index> <value>
  store-order <index> <order> <value>
  insert <index> <order> <value>
  erase <index>
  cas <index> <old> <new>
  tag <index> <tag>      untag <index> <tag>
  load <index>
  find <from> <last> [<tag>]
  range <first> <last>
  dump | dot | html [<first> <last>] | check | stats

Lines starting with '#' are comments.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd.OutOrStdout(), memoryLimit)
		if err != nil {
			return err
		}
		return s.runFile(args[0])
	},
}

var dumpCmd = &cobra.Command{
	Use:   "dump <script>",
	Short: "Execute a script silently and print the final trie",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(io.Discard, memoryLimit)
		if err != nil {
			return err
		}
		if err := s.runFile(args[0]); err != nil {
			return err
		}
		return writeTrie(cmd.OutOrStdout(), s.a, dumpFormat)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "iadump %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&traceLevel, "trace", "error", "trace level (debug, info, error)")
	rootCmd.PersistentFlags().Int64Var(&memoryLimit, "memory", 0, "maximum number of trie nodes (0 = unlimited)")
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "text", "output format (text, dot, html)")
	rootCmd.AddCommand(runCmd, dumpCmd, versionCmd)
}

func setupTracing(level string) error {
	gtrace.CoreTracer = gologadapter.New()
	switch level {
	case "debug":
		gtrace.CoreTracer.SetTraceLevel(tracing.LevelDebug)
	case "info":
		gtrace.CoreTracer.SetTraceLevel(tracing.LevelInfo)
	case "error":
		gtrace.CoreTracer.SetTraceLevel(tracing.LevelError)
	default:
		return fmt.Errorf("unknown trace level %q", level)
	}
	return nil
}

func writeTrie(w io.Writer, a *iarray.Array, format string) error {
	switch format {
	case "text":
		return a.Dump(w)
	case "dot":
		return a.Dot(w)
	case "html":
		return html.WriteTable(w, a, 0, ^uint64(0))
	}
	return fmt.Errorf("unknown format %q", format)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
