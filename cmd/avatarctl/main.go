package main

import (
	"github.com/wb-go/wbf/zlog"

	"github.com/yokitheyo/avatarpipeline/internal/cli"
)

func main() {
	zlog.Init()
	cli.Execute()
}
