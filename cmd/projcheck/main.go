package main

import "github.com/pebbe/proj/v9/internal/cli"

func main() {
	cli.Execute()
}
