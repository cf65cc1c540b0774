package main

import "github.com/fakeyudi/residue/cmd"

func main() {
	cmd.Execute()
}
