// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 cubesnap 的全局共享错误类型。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 protocol、session、artifact、
config 等上层模块提供统一的错误契约，以避免循环依赖。

# 核心类型

  - Error / ErrorCode：结构化错误体系，含错误码、失败阶段（Phase）与远端细节
  - Phase：config / connect / send / receive / artifact 五个阶段

# 主要能力

  - 错误工具链：AsError / GetErrorCode / IsCode / InPhase
  - errors.Is 按错误码匹配：errors.Is(err, NewError(ErrTimeout, ""))
  - 一次运行只尝试一次，所有错误均为致命错误，不区分可重试
*/
package types
