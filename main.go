package main

import "github.com/huanfeng/apkset-cli/cmd"

func main() {
	cmd.Execute()
}
