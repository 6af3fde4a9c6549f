package main

import "github.com/ovs-container-lab/vport-intents/cmd"

func main() {
	cmd.Execute()
}
