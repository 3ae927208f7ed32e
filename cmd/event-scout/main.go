package main

import (
	"github.com/raptor-ai/event-scout/internal/cli"
)

func main() {
	cli.Execute()
}
