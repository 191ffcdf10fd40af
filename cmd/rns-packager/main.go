package main

import "github.com/atepart/rns-release/cmd/rns-packager/cmd"

func main() {
	cmd.Execute()
}
