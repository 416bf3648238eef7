package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cadence-sync/internal/importer"
	"github.com/sells-group/cadence-sync/internal/model"
	"github.com/sells-group/cadence-sync/internal/progress"
	"github.com/sells-group/cadence-sync/internal/reader"
)

var (
	importSequenceID string
	importFieldMap   string
	importFilePath   string
	importSheetName  string
	importSheetIndex int
	importObject     string
	importLimit      int
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import external records into a cadence",
	Long:  "Fetches records from a CSV file, an XLSX sheet, or the connected CRM, maps them through a field map, and attaches accepted records to the target cadence.",
}

var importCSVCmd = &cobra.Command{
	Use:   "csv",
	Short: "Import records from a CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f, err := os.Open(importFilePath)
		if err != nil {
			return eris.Wrap(err, "open csv")
		}
		defer f.Close() //nolint:errcheck

		records, err := reader.ReadCSV(f, reader.CSVOptions{MaxRecords: cfg.Import.MaxRecords})
		if err != nil {
			return err
		}
		return runImport(cmd, records, "csv")
	},
}

var importSheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Import records from an XLSX sheet",
	RunE: func(cmd *cobra.Command, _ []string) error {
		records, err := reader.ReadXLSX(importFilePath, reader.XLSXOptions{
			SheetIndex: importSheetIndex,
			SheetName:  importSheetName,
			MaxRecords: cfg.Import.MaxRecords,
		})
		if err != nil {
			return err
		}
		return runImport(cmd, records, "sheet")
	},
}

var importCRMCmd = &cobra.Command{
	Use:   "crm",
	Short: "Import records from the connected Salesforce org",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("salesforce"); err != nil {
			return err
		}
		fm, err := loadFieldMap(importFieldMap)
		if err != nil {
			return err
		}

		adapter, err := initSalesforce(ctx, importObject, fm)
		if err != nil {
			return err
		}

		limit := importLimit
		if limit == 0 {
			limit = cfg.Import.MaxRecords
		}
		records, err := adapter.BulkFetch(ctx, limit)
		if err != nil {
			return err
		}
		zap.L().Info("fetched crm records",
			zap.Int("count", len(records)),
			zap.String("object", importObject),
		)
		return runImport(cmd, records, "salesforce")
	},
}

// runImport drives one synchronous import and prints the result summary.
func runImport(cmd *cobra.Command, records []model.ExternalRecord, source string) error {
	ctx := cmd.Context()

	fm, err := loadFieldMap(importFieldMap)
	if err != nil {
		return err
	}

	env, err := initEnv(ctx, progress.LogReporter{})
	if err != nil {
		return err
	}
	defer env.Close()

	result, err := env.Importer.Run(ctx, importer.Request{
		FieldMap:   fm,
		SequenceID: importSequenceID,
		Records:    records,
		Source:     source,
	})
	if err != nil {
		return eris.Wrap(err, "import")
	}

	fmt.Printf("Imported %d record(s), %d error(s)\n", result.TotalSuccess, result.TotalError)
	for _, e := range result.ElementError {
		fmt.Printf("  %s: %s\n", e.ExternalID, e.Message)
	}
	return nil
}

func init() {
	importCmd.PersistentFlags().StringVar(&importSequenceID, "sequence", "", "target cadence id (required)")
	importCmd.PersistentFlags().StringVar(&importFieldMap, "field-map", "", "path to field map file (required)")
	_ = importCmd.MarkPersistentFlagRequired("sequence")
	_ = importCmd.MarkPersistentFlagRequired("field-map")

	importCSVCmd.Flags().StringVar(&importFilePath, "file", "", "path to CSV file (required)")
	_ = importCSVCmd.MarkFlagRequired("file")

	importSheetCmd.Flags().StringVar(&importFilePath, "file", "", "path to XLSX file (required)")
	importSheetCmd.Flags().StringVar(&importSheetName, "sheet-name", "", "sheet name (default: first sheet)")
	importSheetCmd.Flags().IntVar(&importSheetIndex, "sheet-index", 0, "sheet index")
	_ = importSheetCmd.MarkFlagRequired("file")

	importCRMCmd.Flags().StringVar(&importObject, "object", "Lead", "Salesforce object to fetch")
	importCRMCmd.Flags().IntVar(&importLimit, "limit", 0, "max records to fetch (default from config)")

	importCmd.AddCommand(importCSVCmd, importSheetCmd, importCRMCmd)
	rootCmd.AddCommand(importCmd)
}
