package main

import "Aethena/client/aethena-cli/cmd"

func main() {
	cmd.Execute()
}
