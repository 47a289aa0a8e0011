package main

import "github.com/josephlewis42/wsh/cmd"

func main() {
	cmd.Execute()
}
