package cmd

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/inference-sizer/sizing"
)

// validateCmd checks the catalog without sizing anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every catalog entry and storage profile consistency",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("%v", err)
		}
	},
}

// validateCatalog returns schema alerts for every spec plus consistency
// alerts for every storage profile.
func validateCatalog(cat sizing.Catalog) []sizing.Alert {
	alerts := sizing.ValidateCatalog(cat)
	for _, p := range cat.Storage {
		alerts = append(alerts, sizing.ConsistencyAlerts(sizing.CheckStorageConsistency(p))...)
	}
	return alerts
}

func runValidate(out io.Writer) error {
	cat, err := loadCatalog()
	if err != nil {
		return err
	}
	alerts := validateCatalog(cat)
	for _, a := range alerts {
		fmt.Fprintln(out, a.String())
	}
	if sizing.HasErrors(alerts) {
		return fmt.Errorf("catalog invalid: %d blocking problem(s)", len(sizing.FilterAlerts(alerts, sizing.SeverityError)))
	}
	fmt.Fprintf(out, "catalog OK: %d models, %d servers, %d storage profiles (%d warning(s))\n",
		len(cat.Models), len(cat.Servers), len(cat.Storage), len(alerts))
	return nil
}

func init() {
	validateCmd.Flags().StringVar(&hfConfigPath, "hf-config", "", "HuggingFace config.json to import and validate as an additional model")
}
