// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
Package modeling 定义远端 3D 建模服务的线上数据结构。

# 概述

本包只覆盖绘制一条路径、拉伸成实体并截图所需的命令子集，以及读取
截图结果所需的响应结构。所有类型均为纯数据，不依赖任何传输层。

# 核心类型

  - Command：建模命令接口，实现有 StartPath、MovePathPen、ExtendPath、
    ClosePath、Extrude、TakeSnapshot，JSON 以 "type" 字段内联标记
  - PathSegment / Line：路径片段，JSON 同样以 "type" 标记
  - Request：出站信封 {"type":"ModelingCmdReq","cmd":...,"cmd_id":...}
  - OkResponseData / ModelingResponse：成功响应的两层标记联合，
    data 保持原始 JSON，按需解析，未知变体不会报错
  - ErrorDetail：失败响应 errors 数组中的单条错误
  - Base64Data：以 base64 字符串传输的二进制内容
*/
package modeling
