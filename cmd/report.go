package cmd

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/tclemos/storage-bench/report"
)

var (
	reportOut      string
	reportTemplate string
)

// reportCmd merges result files into the HTML report template
var reportCmd = &cobra.Command{
	Use:   "report [flags] <file.jsonl>...",
	Short: "Merge result files into an HTML report",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := report.Build(reportTemplate, args, reportOut); err != nil {
			log.Fatal().Err(err).Msg("Report failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "out.html", "Output HTML file")
	reportCmd.Flags().StringVar(&reportTemplate, "template", report.TemplatePath(),
		"Report template (defaults to $"+report.TemplateEnv+" or "+report.DefaultTemplatePath+")")
}
