package main

import "github.com/KaramelBytes/featprune-cli/cmd"

func main() {
	cmd.Execute()
}
