package main

import "github.com/wkalt/avroplan/cli/cmd"

func main() {
	cmd.Execute()
}
