package main

import "github.com/ppiankov/accord/internal/cli"

func main() {
	cli.Execute()
}
