// Package ids 生成文件标识，并在存储卷上以独占创建的方式完成分配.
package ids

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/yeisme/filehost/pkg/internal/storage/blob"
)

const (
	// Length 标识长度.
	Length = 12
	// Alphabet 大小写字母与数字共 62 个符号.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// DefaultMaxAttempts 冲突重试上限，正常情况下第一次即成功.
	DefaultMaxAttempts = 16

	// 拒绝采样阈值，丢弃 >= 248 的字节以保证均匀分布.
	rejectAbove = 256 - 256%len(Alphabet)
)

// ErrIDSpaceExhausted 连续冲突达到上限.
var ErrIDSpaceExhausted = errors.New("ids: could not allocate a unique id")

// Generate 使用 crypto/rand 生成一个均匀分布的标识.
func Generate() (string, error) {
	out := make([]byte, 0, Length)
	buf := make([]byte, Length*2)

	for len(out) < Length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}

		for _, b := range buf {
			if int(b) >= rejectAbove {
				continue
			}

			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == Length {
				break
			}
		}
	}

	return string(out), nil
}

// Valid 判断是否为合法标识. 读取请求中不合法的标识直接视为不存在.
func Valid(id string) bool {
	if len(id) != Length {
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

// TakenFunc 判断标识是否已被元数据占用.
type TakenFunc func(ctx context.Context, id string) (bool, error)

// Allocator 将标识生成与存储卷上的独占创建合并为一步.
type Allocator struct {
	store       blob.Store
	taken       TakenFunc
	generate    func() (string, error)
	maxAttempts int
}

// Option 配置 Allocator.
type Option func(*Allocator)

// WithTaken 额外排除已有元数据记录的标识.
func WithTaken(fn TakenFunc) Option {
	return func(a *Allocator) { a.taken = fn }
}

// WithGenerator 替换标识生成函数.
func WithGenerator(fn func() (string, error)) Option {
	return func(a *Allocator) { a.generate = fn }
}

// WithMaxAttempts 设置冲突重试上限.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// NewAllocator 创建分配器.
func NewAllocator(store blob.Store, opts ...Option) *Allocator {
	a := &Allocator{store: store, generate: Generate, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Allocate 返回一个此前未被使用的标识以及独占创建的写入句柄.
// 并发调用永远不会得到相同的标识.
func (a *Allocator) Allocate(ctx context.Context) (string, blob.Writer, error) {
	for range a.maxAttempts {
		if err := ctx.Err(); err != nil {
			return "", nil, err
		}

		id, err := a.generate()
		if err != nil {
			return "", nil, err
		}

		w, err := a.store.Create(ctx, id)
		if errors.Is(err, blob.ErrExist) {
			continue
		}

		if err != nil {
			return "", nil, err
		}

		if a.taken != nil {
			taken, err := a.taken(ctx, id)
			if err != nil {
				_ = w.Abort()
				return "", nil, err
			}

			if taken {
				_ = w.Abort()
				continue
			}
		}

		return id, w, nil
	}

	return "", nil, ErrIDSpaceExhausted
}
