package main

import (
	"os"

	"github.com/koscakluka/foundry-core/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
