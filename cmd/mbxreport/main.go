package main

import (
	"os"

	mbxcmd "github.com/telekom/mailbox-report/pkg/mbxreport/cmd"
)

func main() {
	root := mbxcmd.NewRootCommand(mbxcmd.DefaultConfig())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
