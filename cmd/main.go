// cmd/main.go is the application entry point.
// The cobra commands in this package wire together all layers.
package main

func main() {
	Execute()
}
