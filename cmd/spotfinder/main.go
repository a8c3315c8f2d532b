package main

import "spotfinder_go_backend/internal/cli"

func main() {
	cli.Execute()
}
