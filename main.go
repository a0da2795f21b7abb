package main

import "sightline/cmd"

func main() {
	cmd.Execute()
}
