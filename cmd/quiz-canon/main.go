package main

import "quiz-canon/internal/cli"

func main() {
	cli.Execute()
}
