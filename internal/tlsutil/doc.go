// Package tlsutil 提供集中式 TLS 配置，
// 为建模服务的 WebSocket 升级请求提供安全加固的 TLS 设置（TLS 1.2+，仅 AEAD 密码套件，固定 HTTP/1.1）。
package tlsutil
