package main

import "github.com/size-analysis/cmd/cli/cmd"

func main() {
	cmd.Execute()
}
