package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newReferencesCommand(ctx *commandContext) *cobra.Command {
	refCmd := &cobra.Command{
		Use:   "references",
		Short: "Inspect a book's reference list",
	}
	refCmd.AddCommand(newReferencesListCommand(ctx))
	return refCmd
}

func newReferencesListCommand(ctx *commandContext) *cobra.Command {
	var bookFlag string
	var asDocument bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List references in number order",
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookFlag(bookFlag)
			if err != nil {
				return err
			}
			return ctx.withEnv(func(env *adminEnv) error {
				view, err := env.bib.Get(cmd.Context(), bookID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if asDocument {
					fmt.Fprint(out, view.Document)
					return nil
				}
				if len(view.References) == 0 {
					fmt.Fprintln(out, "No references")
					return nil
				}
				rows := make([][]string, 0, len(view.References))
				for _, r := range view.References {
					rows = append(rows, []string{strconv.Itoa(r.Number), r.Key, r.Text})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"#", "Key", "Text"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bookFlag, "book", "", "Book id")
	cmd.Flags().BoolVar(&asDocument, "document", false, "Print the rendered bibliography instead of a table")
	return cmd
}
