package main

import "github.com/opsdeck/opsdeck/internal/cli"

func main() {
	cli.Execute()
}
