package main

import "github.com/information-sharing-networks/credential-ledger/internal/cli"

func main() {
	cli.Execute()
}
