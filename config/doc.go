// Package config 提供 cubesnap 的配置管理功能。
//
// 配置按 默认值 → YAML 文件 → 旧版环境变量 → 带前缀的环境变量 的顺序加载，
// 并在启动前统一校验；缺少凭证或输出路径属于启动期的 ConfigError。
package config
