// The main package for the bookrank executable.
package main

import (
	"github.com/lien-Gu/bookrank/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
