package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var errInconsistent = errors.New("book has dangling citations")

func newAuditCommand(ctx *commandContext) *cobra.Command {
	var bookFlag string
	var strict bool

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Check that every cited number has a reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseBookFlag(bookFlag)
			if err != nil {
				return err
			}
			return ctx.withEnv(func(env *adminEnv) error {
				rep, err := env.bib.Audit(cmd.Context(), bookID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "References: %d  Consistent: %t\n", rep.ReferenceCount, rep.Consistent)

				if len(rep.Dangling) > 0 {
					rows := make([][]string, 0, len(rep.Dangling))
					for _, d := range rep.Dangling {
						rows = append(rows, []string{d.Title, joinInts(d.Numbers)})
					}
					fmt.Fprintln(out, "Dangling citations")
					fmt.Fprintln(out, renderTable([]string{"Section", "Numbers"}, rows, nil))
				}
				if len(rep.Unresolved) > 0 {
					rows := make([][]string, 0, len(rep.Unresolved))
					for _, u := range rep.Unresolved {
						rows = append(rows, []string{u.Title, strings.Join(u.Keys, ", ")})
					}
					fmt.Fprintln(out, "Unresolved markers")
					fmt.Fprintln(out, renderTable([]string{"Section", "Keys"}, rows, nil))
				}
				if len(rep.OrphanNumbers) > 0 {
					fmt.Fprintf(out, "Uncited references: %s\n", joinInts(rep.OrphanNumbers))
				}
				if strict && !rep.Consistent {
					return errInconsistent
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&bookFlag, "book", "", "Book id")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when the book is inconsistent")
	return cmd
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
