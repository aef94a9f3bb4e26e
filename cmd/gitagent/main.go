package main

import "github.com/lexcodex/gitagent/app/cmd"

func main() {
	cmd.Execute()
}
