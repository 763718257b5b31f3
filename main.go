package main

import "github.com/reefwatch/sharkmark/cmd"

func main() {
	cmd.Execute()
}
