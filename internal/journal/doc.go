// Package journal 把每次快照会话的结果持久化到本地 SQLite 文件。
//
// 使用 gorm 与纯 Go 的 glebarez/sqlite 驱动，无需 cgo。成功与失败的会话
// 都会记录：命令数、入站帧数、耗时、输出路径、图片尺寸，以及失败时的
// 阶段与错误码。命令行的 history 子命令读取最近的记录。
package journal
