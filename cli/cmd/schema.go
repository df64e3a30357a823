package cmd

import (
	"bytes"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/wkalt/avroplan/container"
)

// schemaCmd represents the schema command
var schemaCmd = &cobra.Command{
	Use:   "schema [file]",
	Short: "Print the writer schema embedded in a container file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(args[0])
		checkErr(err)
		defer f.Close()
		reader, err := container.NewReader(cmd.Context(), f)
		checkErr(err)
		buf := &bytes.Buffer{}
		checkErr(json.Indent(buf, reader.SchemaJSON(), "", "  "))
		fmt.Println(buf.String())
	},
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
