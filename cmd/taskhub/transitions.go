package main

import (
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/gosuda/taskhub/internal/domain"
)

func transitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transitions",
		Short: "Print the task state transition table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderTransitions(cmd.OutOrStdout())
			return nil
		},
	}
}

func renderTransitions(w io.Writer) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"From", "To", "Reason required", "Terminal"})
	for _, from := range domain.ValidTaskStates {
		targets := make([]string, 0)
		for _, to := range domain.AllowedTransitions(from) {
			targets = append(targets, string(to))
		}
		to := strings.Join(targets, ", ")
		if to == "" {
			to = "-"
		}
		tw.AppendRow(table.Row{from, to, yesNo(from.RequiresReason()), yesNo(from.IsTerminal())})
	}
	tw.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
