// Package blob 定义按标识存放文件内容的存储卷接口，并提供本地目录与 S3 两种实现.
//
// 存储卷中的对象只以生成的标识命名，与客户端提交的文件名无关.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/yeisme/filehost/pkg/configs"
)

var (
	// ErrExist 独占创建时目标已存在.
	ErrExist = errors.New("blob: already exists")
	// ErrNotExist 目标不存在.
	ErrNotExist = errors.New("blob: does not exist")
	// ErrInvalidID 标识包含非法字符.
	ErrInvalidID = errors.New("blob: invalid id")
)

// Store 存储卷.
type Store interface {
	// Create 以独占方式创建 id 对应的对象，已存在时返回 ErrExist.
	Create(ctx context.Context, id string) (Writer, error)
	// Open 打开 id 对应的对象，不存在时返回 ErrNotExist.
	Open(ctx context.Context, id string) (Object, error)
	// Remove 删除 id 对应的对象，对象不存在视为成功.
	Remove(ctx context.Context, id string) error
	// Exists 检查对象是否存在.
	Exists(ctx context.Context, id string) (bool, error)
	// Ping 检查存储卷可用.
	Ping(ctx context.Context) error
	// Close 释放资源.
	Close() error
}

// Writer 写入中的对象. Commit 与 Abort 二者必须且只能调用其一.
type Writer interface {
	io.Writer
	// Commit 落盘并关闭，成功后对象对 Open 可见.
	Commit() error
	// Abort 关闭并删除已写入的部分内容.
	Abort() error
}

// Object 可读取、可定位的对象句柄.
type Object interface {
	io.ReadSeekCloser
	Info() Info
}

// Info 对象的基础信息.
type Info struct {
	Size    int64
	ModTime time.Time
}

// Factory 根据配置创建 Store.
type Factory func(ctx context.Context, cfg *configs.AppConfig) (Store, error)

var factories = map[configs.StorageBackend]Factory{}

// RegisterFactory 注册存储卷实现.
func RegisterFactory(backend configs.StorageBackend, f Factory) {
	factories[backend] = f
}

// GetRegisteredBackends 返回已注册的存储卷类型.
func GetRegisteredBackends() []configs.StorageBackend {
	out := make([]configs.StorageBackend, 0, len(factories))
	for b := range factories {
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })

	return out
}

// New 按 storage.backend 创建存储卷.
func New(ctx context.Context, cfg *configs.AppConfig) (Store, error) {
	f, ok := factories[cfg.Storage.Backend]
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Storage.Backend)
	}

	return f(ctx, cfg)
}

// maxIDLength 标识长度上限.
const maxIDLength = 64

// validID 只接受由 ASCII 字母数字组成的标识.
// 数据库文件等非上传产物（app.db、app.db-wal）因含 '.' 或 '-' 永远不会被当作文件读写或删除.
func validID(id string) bool {
	if id == "" || len(id) > maxIDLength {
		return false
	}

	for i := 0; i < len(id); i++ {
		c := id[i]

		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		default:
			return false
		}
	}

	return true
}
