package main

import "github.com/kennedyshead/prove/cmd"

func main() {
	cmd.Execute()
}
