package main

import "github.com/ByLCY/quire/internal/cli"

func main() {
	cli.Execute()
}
