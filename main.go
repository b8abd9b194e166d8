package main

import "guild-backup/cmd"

func main() {
	cmd.Execute()
}
