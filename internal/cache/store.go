package cache

import (
	"context"
	"errors"
	"time"
)

// Artifact 标识缓存目录下的一个槽位，所有槽位均为单文件。
type Artifact string

const (
	// ArtifactBody 保存上一次成功获取的 feed 原文。
	ArtifactBody Artifact = "macos_data_feed.json"
	// ArtifactValidator 保存上游返回的 ETag 等新鲜度令牌。
	ArtifactValidator Artifact = "macos_data_feed_etag.txt"
)

// Store 负责管理磁盘缓存的读写。磁盘布局遵循：
//
//	<CachePath>/macos_data_feed.json      # feed 正文
//	<CachePath>/macos_data_feed_etag.txt  # 新鲜度令牌
//
// 每个槽位仅由单个文件组成，文件的 ModTime/Size 由文件系统提供。
type Store interface {
	// Read 返回槽位内容。若从未写入则返回 ErrNotFound，调用方视为"尚无缓存"。
	Read(ctx context.Context, artifact Artifact) ([]byte, error)

	// Write 覆盖槽位内容。实现需通过临时文件 + rename 保证写入原子性，
	// 并在失败时清理临时文件。
	Write(ctx context.Context, artifact Artifact, data []byte) error

	// Stat 返回槽位的文件信息，供诊断接口展示缓存状态。
	Stat(ctx context.Context, artifact Artifact) (*Info, error)
}

// Info 描述一个已存在槽位的文件信息。
type Info struct {
	Artifact  Artifact  `json:"artifact"`
	SizeBytes int64     `json:"size_bytes"`
	ModTime   time.Time `json:"mod_time"`
}

// ErrNotFound 表示槽位尚未写入过。
var ErrNotFound = errors.New("cache artifact not found")
