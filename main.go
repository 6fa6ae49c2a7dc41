package main

import "github.com/viktsys/taifexbot/cmd"

func main() {
	cmd.Execute()
}
