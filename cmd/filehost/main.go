// Package main 启动应用程序
package main

import (
	"os"

	"github.com/yeisme/filehost/pkg/cmd"
)

//	@title			filehost API
//	@version		1.0
//	@description	filehost 是一个最小化的文件托管服务，支持流式上传、按时长过期与自动清理。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
