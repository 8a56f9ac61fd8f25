package main

import "github.com/pyship/pyship/cmd"

func main() {
	cmd.Execute()
}
