package main

import "github.com/slyfox1186/qwen3-8b-chatbot/cmd"

func main() {
	cmd.Execute()
}
