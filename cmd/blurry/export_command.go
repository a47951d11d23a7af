package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"blurry/internal/config"
	"blurry/internal/layout"
	"blurry/internal/services"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Inspect the export tree",
	}
	exportCmd.AddCommand(newExportCheckCommand(ctx))
	return exportCmd
}

func newExportCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the export root for the configured layout without changing it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			policy, err := layout.New(cfg)
			if err != nil {
				return err
			}
			report := newCheckReport(cmd.OutOrStdout(), "Export")
			report.line("Layout", checkNote, policy.Name())
			report.line("Root", checkNote, policy.Root())
			for _, folder := range exportFolders(cfg) {
				report.line("Folder", checkNote, filepath.Join(policy.Root(), folder))
			}
			if err := policy.Validate(); err != nil {
				report.line("Validation", checkFail, err.Error())
				report.line("Hint", checkWarn, services.ErrorHint(err))
				return err
			}
			report.line("Validation", checkPass, "ready")
			return nil
		},
	}
}

func exportFolders(cfg *config.Config) []string {
	if cfg.Export.Layout == config.LayoutFlat {
		return []string{cfg.Export.UnredactedFolder, cfg.Export.RedactedFolder}
	}
	return []string{cfg.Export.SourceFolder, cfg.Export.DerivedFolder}
}
