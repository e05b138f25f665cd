package main

import (
	"fmt"
	"strings"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/internal/pkg/secrets"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pipeline.yaml>...",
	Short: "Check pipeline definitions and the secrets they reference",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appConf, err := loadConf()
		if err != nil {
			return err
		}
		catalog := secrets.ProvideStore(appConf.Secrets).Catalog()

		out := cmd.OutOrStdout()
		failed := 0
		for _, path := range args {
			pl, err := pipeline.Load(path)
			if err != nil {
				failed++
				fmt.Fprintf(out, "FAIL %s\n  %v\n", path, err)
				continue
			}
			issues := secrets.Lint(pl, catalog)
			if len(issues) == 0 {
				fmt.Fprintf(out, "ok   %s (%s, %d stages)\n", path, pl.Name, len(pl.Stages))
				if g, err := pl.Graph(); err == nil {
					fmt.Fprintf(out, "  order: %s\n", strings.Join(g.TopologicalOrder(), " -> "))
				}
				continue
			}
			failed++
			fmt.Fprintf(out, "FAIL %s (%s)\n", path, pl.Name)
			for _, issue := range issues {
				fmt.Fprintf(out, "  %s\n", issue)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d pipelines failed validation", failed, len(args))
		}
		return nil
	},
}
