package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/go-arcade/conveyor/internal/pkg/pipeline"
	"github.com/go-arcade/conveyor/internal/pkg/secrets"
	"github.com/spf13/cobra"
)

var secretsCmd = &cobra.Command{
	Use:   "secrets",
	Short: "Inspect the secrets catalog",
}

var secretsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the secrets catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		appConf, err := loadConf()
		if err != nil {
			return err
		}
		catalog := secrets.ProvideStore(appConf.Secrets).Catalog()
		out := cmd.OutOrStdout()
		for _, name := range catalog.Names() {
			entry, _ := catalog.Lookup(name)
			scope := "global"
			if !entry.Global() {
				scope = strings.Join(entry.Environments, ",")
			}
			fmt.Fprintf(out, "%-28s %-10s %s\n", name, scope, entry.Role)
		}
		return nil
	},
}

var secretsCheckCmd = &cobra.Command{
	Use:   "check <pipeline.yaml>",
	Short: "Report required secrets missing from the environment for each deployment target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appConf, err := loadConf()
		if err != nil {
			return err
		}
		store := secrets.ProvideStore(appConf.Secrets)
		pl, err := pipeline.Load(args[0])
		if err != nil {
			return err
		}

		names := make([]string, 0, len(pl.Environments))
		for name := range pl.Environments {
			names = append(names, name)
		}
		slices.Sort(names)

		out := cmd.OutOrStdout()
		missing := 0
		for _, name := range names {
			res := store.ForEnvironment(pl.Environments[name])
			if err := res.Err(); err != nil {
				missing += len(res.Missing)
				fmt.Fprintf(out, "%-12s missing %s\n", name, strings.Join(res.Missing, ", "))
				continue
			}
			fmt.Fprintf(out, "%-12s ok (%d secrets)\n", name, len(res.Values))
		}
		for _, issue := range secrets.Lint(pl, store.Catalog()) {
			fmt.Fprintf(out, "lint: %s\n", issue)
		}
		if missing > 0 {
			return fmt.Errorf("%w: %d across environments", secrets.ErrMissingSecrets, missing)
		}
		return nil
	},
}

func init() {
	secretsCmd.AddCommand(secretsListCmd, secretsCheckCmd)
}
