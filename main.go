package main

import "github.com/frahmantamala/salon-portal/cmd"

func main() {
	cmd.Execute()
}
