package main

import "github.com/deploymenttheory/go-carve/cmd"

func main() {
	cmd.Execute()
}
