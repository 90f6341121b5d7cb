package main

import "ragapi/internal/cli"

func main() {
	cli.Execute()
}
