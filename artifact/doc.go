// Copyright (c) AgentFlow Authors.
// Licensed under the MIT License.

/*
包 artifact 负责把快照响应中的图像字节解码并落盘。

# 概述

快照字节按声明的格式（png / jpeg）解码为内存位图，再按输出路径扩展名
选择容器格式编码：.png（默认）、.jpg/.jpeg、.gif、.bmp、.tif/.tiff。
解码前先读取图像头，声明尺寸超过 MaxPixels 直接返回 DecodeError；
解码失败返回 DecodeError 且不写任何文件；写入先落到同目录临时文件，
成功后原子 rename，失败返回 IOError。

# 核心函数

  - DecodeAndSave：解码 + 编码 + 原子写入，返回 Info（路径、容器、尺寸、字节数）
  - Decode / Encode：可单独使用的解码与编码步骤
  - ContainerFor：扩展名到容器格式的映射
*/
package artifact
