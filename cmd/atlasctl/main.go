// Command atlasctl packs sprites into texture atlas layers and simulates
// atlas workloads.
package main

func main() {
	execute()
}
