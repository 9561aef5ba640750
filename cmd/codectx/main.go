package main

import "github.com/mvp-joe/codectx/internal/cli"

func main() {
	cli.Execute()
}
