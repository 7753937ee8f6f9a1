package main

import "github.com/streammd/streammd/cmd"

func main() {
	cmd.Execute()
}
