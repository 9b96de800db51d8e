package main

import "github.com/Norgate-AV/llmconv/cmd"

func main() {
	cmd.Execute()
}
