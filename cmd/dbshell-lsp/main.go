// Command dbshell-lsp is the language-server companion: it reuses the
// core lexer/parser to publish diagnostics and completions for the
// query sublanguage, independent of the interactive TUI core.
package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dbshell/dbshell/internal/config"
	"github.com/dbshell/dbshell/internal/lsp"
)

func main() {
	cliApp := cli.NewApp()
	cliApp.Name = "dbshell-lsp"
	cliApp.Usage = "language-server companion for the dbshell query sublanguage"
	cliApp.Action = func(c *cli.Context) error {
		collectionsPath, err := config.CollectionsPath()
		if err != nil {
			return err
		}
		return lsp.New(os.Stdin, os.Stdout, collectionsPath).Serve()
	}

	if err := cliApp.Run(os.Args); err != nil {
		os.Exit(1)
	}
}
