// Package transport 把远端建模服务的 WebSocket 连接适配为 protocol 包的
// Sender / Receiver 两半。
//
// Dial 负责拼接查询参数与 Bearer 认证头并建立连接；Conn.Split 返回两个
// 独立所有权的半通道，发送半关闭只标记自身，不影响接收半继续读取。
package transport
