package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"blurry/internal/deps"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check the external programs blurry needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			statuses := deps.CheckBinaries(deps.Requirements(cfg))
			statuses = append(statuses, deps.CheckModel(cfg.Detector.ModelPath))

			rows := make([][]string, 0, len(statuses))
			for _, s := range statuses {
				state := "ok"
				switch {
				case !s.Available && s.Optional:
					state = "missing (optional)"
				case !s.Available:
					state = "missing"
				}
				detail := s.Detail
				if s.Version != "" {
					detail = s.Version
				}
				location := s.Path
				if location == "" {
					location = s.Command
				}
				rows = append(rows, []string{s.Name, state, location, detail})
			}
			fmt.Fprint(cmd.OutOrStdout(), renderTable(
				[]string{"Dependency", "Status", "Location", "Detail"}, rows, nil))

			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("%d required dependencies missing", len(missing))
			}
			return nil
		},
	}
}
