package main

import "clipwatch/cmd"

func main() {
	cmd.Execute()
}
