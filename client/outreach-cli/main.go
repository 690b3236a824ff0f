package main

import "Outreach/client/outreach-cli/cmd"

func main() {
	cmd.Execute()
}
