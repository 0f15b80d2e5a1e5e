// Package main 提供 rdgen 命令行入口
//
// rdgen 读取 YAML 服务模型，生成调用代理与服务端绑定器的 Go 源码。
// 生成是确定性的：同一模型永远得到同一输出，适合提交进版本库。
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dep2p/go-rd/internal/core/codegen"
	"github.com/dep2p/go-rd/pkg/lib/log"
)

var logger = log.Logger("rdgen/cmd")

var (
	inFile  = flag.String("in", "", "服务模型文件（YAML）")
	outFile = flag.String("out", "", "输出文件（默认标准输出）")
)

func main() {
	flag.Parse()
	if *inFile == "" {
		fmt.Fprintln(os.Stderr, "用法: rdgen -in model.yaml [-out service_gen.go]")
		os.Exit(2)
	}

	if err := run(*inFile, *outFile); err != nil {
		logger.Error("生成失败", "err", err)
		os.Exit(1)
	}
}

func run(in, out string) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("读取模型: %w", err)
	}
	model, err := codegen.ParseModel(data)
	if err != nil {
		return fmt.Errorf("解析模型: %w", err)
	}
	src, err := codegen.Emit(model)
	if err != nil {
		return fmt.Errorf("生成代码: %w", err)
	}

	if out == "" {
		_, err = os.Stdout.Write(src)
		return err
	}
	if err := os.WriteFile(out, src, 0o644); err != nil {
		return fmt.Errorf("写出文件: %w", err)
	}
	logger.Info("生成完成", "in", in, "out", out)
	return nil
}
