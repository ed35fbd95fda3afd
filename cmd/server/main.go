package main

import "torrents/internal/cli"

func main() {
	cli.Execute()
}
