package main

import "github.com/warrenhq/warren/cmd/warren/cmd"

func main() {
	cmd.Execute()
}
