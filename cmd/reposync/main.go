package main

import "reposync/internal/cmd"

func main() {
	cmd.Execute()
}
