// 版权所有 2024 AgentFlow Authors. 版权所有。
// 此源代码的使用由 MIT 许可规范,该许可可以是
// 在LICENSE文件中找到。

/*
包 metrics 提供基于 Prometheus 的快照会话指标采集能力。

# 概述

Collector 在独立的 Registry 上通过 promauto 注册指标，命令行进程结束前
可用 WriteTextfile 将全部指标写成 node_exporter textfile 格式。

# 主要能力

  - 出站指标：按命令类型统计发送数与失败数，整批发送耗时
  - 入站指标：按帧类型与响应类型统计入站帧
  - 会话指标：按结果（success 或错误码）统计会话数与耗时
  - 产物指标：写出图片的字节数分布
*/
package metrics
