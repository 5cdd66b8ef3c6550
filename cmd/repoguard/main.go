package main

import "github.com/vietddude/repoguard/internal/cli"

func main() {
	cli.Execute()
}
