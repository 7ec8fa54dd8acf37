// Command transito validates, draws, serves and drives durable state machines
// described in YAML.
package main

func main() {
	Execute()
}
