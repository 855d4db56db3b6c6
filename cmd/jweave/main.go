package main

import "github.com/daimatz/jweave/cmd/jweave/cmd"

func main() {
	cmd.Execute()
}
