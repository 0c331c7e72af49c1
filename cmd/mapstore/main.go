// Command mapstore inspects and maintains a map data store: notes, garbage
// collection of unreferenced rows and the note archive.
package main

func main() {
	Execute()
}
