package main

import "filehost-backend/cmd"

func main() {
	cmd.Execute()
}
