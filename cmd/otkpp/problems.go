package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chandu8542/otkpp/internal/solver/testproblems"
)

var problemsCmd = &cobra.Command{
	Use:   "problems",
	Short: "List the objective catalog",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range testproblems.Names() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(problemsCmd)
}
