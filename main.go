package main

import "github.com/atelier-sh/atelier/cmd"

func main() {
	cmd.Execute()
}
