package main

// main 是命令行入口
func main() {
	Execute()
}
