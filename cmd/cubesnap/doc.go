// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 cubesnap 命令行程序入口。

# 概述

cmd/cubesnap 连接远端建模服务的 WebSocket 端点，发送绘制并拉伸立方体
的命令序列，等待快照响应并把图片写入本地文件。任何错误都以非零状态
退出，日志中带有失败的阶段（config、connect、send、receive、artifact）。

# 子命令

  - snapshot：执行一次会话，成功时在标准输出打印图片路径
  - history：读取 SQLite 运行记录，打印最近的会话与成功率
  - version：打印构建注入的版本信息
  - help：打印用法

# 配置

配置来源依次为默认值、--config 指定的 YAML 文件、KITTYCAD_API_TOKEN 与
IMAGE_OUTPUT_PATH、CUBESNAP_ 前缀环境变量，最后是命令行参数。
*/
package main
