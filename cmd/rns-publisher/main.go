package main

import "github.com/atepart/rns-release/cmd/rns-publisher/cmd"

func main() {
	cmd.Execute()
}
