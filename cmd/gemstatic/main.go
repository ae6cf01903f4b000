// Command gemstatic serves a static site generator's output tree over the
// Gemini protocol, converting HTML pages to gemtext on the fly.
package main

import "os"

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
