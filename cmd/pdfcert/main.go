package main

import (
	"fmt"
	"os"

	"github.com/digitorus/pdfcert/cli"
)

func main() {
	if len(os.Args) < 2 {
		cli.Usage()
	}

	switch os.Args[1] {
	case "generate":
		cli.GenerateCommand()
	case "preview":
		cli.PreviewCommand()
	case "select":
		cli.SelectCommand()
	case "inspect":
		cli.InspectCommand()
	case "verify":
		cli.VerifyCommand()
	case "-h", "--help", "help":
		cli.Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		cli.Usage()
	}
}
