package main

import "github.com/cryptonewsbr/newsbot-deploy/cmd/newsbot-deploy/cmd"

func main() {
	cmd.Execute()
}
