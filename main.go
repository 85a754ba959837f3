package main

import "github.com/edgeflare/postemu/cmd/postemu"

func main() {
	postemu.Main()
}
