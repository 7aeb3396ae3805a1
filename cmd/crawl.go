package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/company-intel-crawler/internal/server"
)

func newCrawlCmd(opts *options) *cobra.Command {
	var input, output string
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls every company in a spreadsheet",
		Long: `Reads company_name and website columns from an .xlsx or .csv file, crawls
the companies one after another and rewrites the output workbook after each
company, so an interrupted run keeps what it finished.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			return server.RunBatch(cmd.Context(), cfg, input, output)
		},
	}
	cmd.Flags().StringVar(&input, "input", "companies.xlsx", "input spreadsheet (.xlsx, .xls or .csv)")
	cmd.Flags().StringVar(&output, "output", "output.xlsx", "output workbook path")
	return cmd
}
