package main

import (
	"fmt"

	"github.com/sofa-check/sofa-check/internal/version"
)

// printVersion 输出注入的版本 + 提交信息。
func printVersion() {
	fmt.Fprintln(stdOut, version.Full())
}
