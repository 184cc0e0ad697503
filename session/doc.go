// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 session 编排一次完整的立方体快照会话。

# 概述

Sequencer 按顺序把九条建模命令写入出站半通道，不等待任何确认；
Runner 在此之上串联 protocol.Correlator 与 artifact.DecodeAndSave，
并负责日志、Prometheus 指标、OpenTelemetry span 与运行记录。

# 命令序列

StartPath 的 cmd_id 同时作为路径 ID，之后的 MovePathPen、四条 Line、
ClosePath 与 Extrude 都显式引用它；最后一条是 TakeSnapshot。

# 运行模式

  - 默认：先发送全部命令，再消费响应直到快照
  - Pipelined：发送与接收通过 errgroup 并发执行，任一侧失败即取消另一侧
  - StrictCorrelation：每个响应的 request_id 必须对应一个未应答的已发送请求
*/
package session
