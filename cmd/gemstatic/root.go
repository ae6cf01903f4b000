package main

import (
	"github.com/spf13/cobra"
)

var cfgFile string

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "gemstatic",
		Short:        "Serve static site output over the Gemini protocol",
		Long:         "gemstatic serves a directory of statically generated site content over Gemini, transforming HTML pages to gemtext so the same tree can be published over HTTPS and Gemini at once.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is ./gemstatic.yaml or /etc/gemstatic/gemstatic.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(fetchCmd())
	return root
}
