package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var bookFlag string
	var fileFlag string

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Apply an edited bibliography document to a book",
		Long: "Reads the edited reference list (one \"[n] text\" entry per line) and renumbers,\n" +
			"deletes or adds references, rewriting citations in every affected section.",
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookFlag(bookFlag)
			if err != nil {
				return err
			}
			doc, err := readDocument(cmd.InOrStdin(), fileFlag)
			if err != nil {
				return err
			}
			return ctx.withEnv(func(env *adminEnv) error {
				res, err := env.bib.Reconcile(cmd.Context(), bookID, doc)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Updated", "Deleted", "Created", "Edited", "Sections affected"},
					[][]string{{
						strconv.Itoa(res.Renumbered),
						strconv.Itoa(res.Deleted),
						strconv.Itoa(res.Created),
						strconv.Itoa(res.Edited),
						strconv.Itoa(res.SectionsAffected),
					}},
					[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
				))
				if len(res.Renumber) > 0 {
					olds := make([]int, 0, len(res.Renumber))
					for old := range res.Renumber {
						olds = append(olds, old)
					}
					sort.Ints(olds)
					rows := make([][]string, 0, len(olds))
					for _, old := range olds {
						rows = append(rows, []string{strconv.Itoa(old), strconv.Itoa(res.Renumber[old])})
					}
					fmt.Fprintln(out, renderTable([]string{"Old", "New"}, rows, []columnAlignment{alignRight, alignRight}))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bookFlag, "book", "", "Book id")
	cmd.Flags().StringVar(&fileFlag, "file", "", "Bibliography document to apply (- for stdin)")
	return cmd
}

func readDocument(stdin io.Reader, path string) (string, error) {
	path = strings.TrimSpace(path)
	switch path {
	case "":
		return "", fmt.Errorf("--file is required")
	case "-":
		raw, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(raw), nil
	default:
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		return string(raw), nil
	}
}
