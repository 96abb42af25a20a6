package main

import "finance_tracker/internal/cli"

func main() {
	cli.Execute()
}
