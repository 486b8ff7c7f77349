// Command enseal is the command-line client for sharing .env files and
// secrets between machines: it manages a principal's identity and
// trusted-key list, and drives the three transfer transports over a
// sealed envelope pipeline.
package main

func main() {
	Execute()
}
