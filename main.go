package main

import (
	"fmt"
	"os"

	"github.com/prism-lang/prismc/cmd/prismc"
)

func main() {
	if err := prismc.RootCommand.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
