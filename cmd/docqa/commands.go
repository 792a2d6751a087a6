package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Index one or more .txt files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show or clear chat history",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List or delete documents",
	Args:  cobra.NoArgs,
	RunE:  runDocuments,
}

var (
	clearHistory   bool
	deleteDocument string
	jsonOutput     bool
)

func init() {
	historyCmd.Flags().BoolVar(&clearHistory, "clear", false, "Delete the chat history")
	documentsCmd.Flags().StringVar(&deleteDocument, "delete", "", "Delete the document with this id")
	askCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the answer as JSON")

	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	owner, err := requireUser()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, p := range args {
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		res, err := a.service.Ingest(ctx, data, filepath.Base(p), owner)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d chunks\n", res.DocumentID, filepath.Base(p), res.ChunkCount)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	owner, err := requireUser()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	ans, err := a.service.Ask(ctx, strings.Join(args, " "), owner)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ans)
	}
	fmt.Fprintln(out, ans.Text)
	if len(ans.Sources) > 0 {
		fmt.Fprintln(out, "\nSources:")
		for _, s := range ans.Sources {
			fmt.Fprintf(out, "  - %s\n", s.DocumentName)
		}
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	owner, err := requireUser()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if clearHistory {
		if err := a.service.ClearHistory(ctx, owner); err != nil {
			return err
		}
		fmt.Fprintln(out, "Chat history cleared")
		return nil
	}

	entries, err := a.service.History(ctx, owner)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(out, "[%s]\nQ: %s\nA: %s\n\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Question, e.Answer)
	}
	return nil
}

func runDocuments(cmd *cobra.Command, args []string) error {
	owner, err := requireUser()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	if deleteDocument != "" {
		if err := a.service.DeleteDocument(ctx, owner, deleteDocument); err != nil {
			return err
		}
		fmt.Fprintln(out, "Deleted")
		return nil
	}

	docs, err := a.service.Documents(ctx, owner)
	if err != nil {
		return err
	}
	for _, d := range docs {
		fmt.Fprintf(out, "%s\t%s\t%s\n", d.ID, d.Name, d.UploadedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}
