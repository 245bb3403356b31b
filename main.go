package main

import "github.com/phantomlab/facetriage/cmd"

func main() {
	cmd.Execute()
}
