// Copyright 2026 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license.

/*
Package testutil 提供 cubesnap 测试的共享工具和辅助函数。

# 概述

testutil 包为各包的单元测试提供统一的辅助能力，避免重复实现
相似的测试基础设施。

# 核心能力

  - 上下文辅助: TestContext / CancelledContext，自动注册 Cleanup 防止泄漏
  - 断言工具: AssertImageSize / AssertNoFile

# 子包

  - testutil/mocks: 双工通道两半的模拟实现。ScriptedReceiver 按脚本
    回放帧并记录被拉取次数，BlockingReceiver 永不产出帧，
    RecordingSender 记录发送内容并支持错误注入
  - testutil/fixtures: 测试数据工厂，提供成功/失败信封帧、
    快照响应帧与最小 PNG 样例

# 使用示例

	rx := mocks.NewScriptedReceiver(fixtures.EmptyAck(id), fixtures.Snapshot(id, png))
	result, err := protocol.NewCorrelator().Drain(testutil.TestContext(t), rx)
*/
package testutil
