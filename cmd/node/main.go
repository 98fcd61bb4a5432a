// Command nexium runs a federated peer-to-peer cryptocurrency node.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "nexium",
		Short: "A federated peer-to-peer cryptocurrency node",
	}
	root.AddCommand(newRunCommand())
	root.AddCommand(newGenerateConfigCommand())
	root.AddCommand(newPublishKeyCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
