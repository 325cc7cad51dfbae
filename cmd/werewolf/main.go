package main

import "github.com/mcoot/werewolf/internal/cli"

func main() {
	cli.Execute()
}
