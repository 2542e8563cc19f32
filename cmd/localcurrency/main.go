package main

import (
	"os"

	"local_currency/cmd/localcurrency/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
