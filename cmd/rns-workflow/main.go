package main

import "github.com/atepart/rns-release/cmd/rns-workflow/cmd"

func main() {
	cmd.Execute()
}
