package main

import "github.com/atepart/rns-release/cmd/rns-stamp/cmd"

func main() {
	cmd.Execute()
}
