// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 protocol 实现与远端建模服务之间的双工协议交换。

# 概述

protocol 负责出站命令的信封编码、入站响应的信封判别，以及在超时约束下
消费入站流直到快照响应到达。传输层以 Sender / Receiver 两个独立所有权
的接口出现，本包不关心连接如何建立或认证。

# 核心接口

  - Sender：出站半通道，Send 发送一个文本帧，Close 表示不再发送命令
  - Receiver：入站半通道，Receive 读取下一帧，流结束时返回 io.EOF
  - Frame / FrameKind：text、binary、ping、pong、close 五种帧

# 主要能力

  - Encode：命令 + 关联 ID 编码为 {"type":"ModelingCmdReq",...} 文本帧
  - Decode：两段式探测，先按成功信封解析，失败再按失败信封解析，
    两者都不匹配即 MalformedFrame；失败信封取最后一条错误作为 RemoteError
  - Correlator：逐帧消费入站流，跳过保活帧，丢弃 empty 等中间确认，
    遇到 take_snapshot 立即停止；流结束、超时、帧类型异常均为致命错误
  - Tracker：可选的严格关联模式，要求每个 modeling 响应的 request_id
    对应一个尚未应答的已发送请求
*/
package protocol
