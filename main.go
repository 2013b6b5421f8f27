package main

import "github.com/roamstay/payment-service/cmd"

func main() {
	cmd.Execute()
}
