package main

import "github.com/KaramelBytes/tabproof/cmd"

func main() {
	cmd.Execute()
}
