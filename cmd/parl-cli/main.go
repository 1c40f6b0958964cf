package main

import (
	"parlwatch-backend/cmd/parl-cli/cmd"
)

func main() {
	cmd.Execute()
}
