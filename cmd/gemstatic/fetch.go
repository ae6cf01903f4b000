package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gemstatic/gemstatic/gemini"
)

func fetchCmd() *cobra.Command {
	var insecure bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Fetch a Gemini URL and print the response",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := &gemini.Client{Timeout: timeout, Insecure: insecure}
			res, err := client.Fetch(args[0])
			if err != nil {
				return err
			}
			defer res.Body.Close()

			fmt.Fprintf(os.Stderr, "%d %s\n", res.Status, res.Meta)
			if gemini.SimplifyStatus(res.Status) == gemini.StatusSuccess {
				if _, err := io.Copy(os.Stdout, res.Body); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip all certificate checks")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Second, "connection timeout")
	return cmd
}
