package main

import "github.com/atepart/rns-release/cmd/rns-updater/cmd"

func main() {
	cmd.Execute()
}
