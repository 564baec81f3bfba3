package main

import "github.com/tessro/startify/internal/cli"

func main() {
	cli.Execute()
}
