package main

import "github.com/dogvoc/dogvoc-cli/cmd"

func main() {
	cmd.Execute()
}
