package blob

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yeisme/filehost/pkg/configs"
)

const filePerm = 0o644

// LocalStore 以目录作为存储卷，文件名即标识.
type LocalStore struct {
	dir string
}

// NewLocalStore 创建本地存储卷，目录不存在时自动创建.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}

	return &LocalStore{dir: dir}, nil
}

// Dir 返回存储目录.
func (s *LocalStore) Dir() string { return s.dir }

// Path 返回 id 对应的文件路径.
func (s *LocalStore) Path(id string) string {
	return filepath.Join(s.dir, id)
}

// Create 使用 O_EXCL 独占创建文件，分配与创建在同一个系统调用内完成.
func (s *LocalStore) Create(_ context.Context, id string) (Writer, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}

	path := s.Path(id)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, ErrExist
		}

		return nil, fmt.Errorf("create %s: %w", id, err)
	}

	return &localWriter{f: f, path: path}, nil
}

// Open 打开文件用于读取.
func (s *LocalStore) Open(_ context.Context, id string) (Object, error) {
	if !validID(id) {
		return nil, ErrNotExist
	}

	f, err := os.Open(s.Path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}

		return nil, fmt.Errorf("open %s: %w", id, err)
	}

	st, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("stat %s: %w", id, err)
	}

	return &localObject{File: f, info: Info{Size: st.Size(), ModTime: st.ModTime()}}, nil
}

// Remove 删除文件，文件不存在视为成功.
func (s *LocalStore) Remove(_ context.Context, id string) error {
	if !validID(id) {
		return nil
	}

	return removeIfExists(s.Path(id))
}

// Exists 检查文件是否存在.
func (s *LocalStore) Exists(_ context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	_, err := os.Stat(s.Path(id))
	if err == nil {
		return true, nil
	}

	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	return false, err
}

// Ping 检查目录可访问.
func (s *LocalStore) Ping(_ context.Context) error {
	st, err := os.Stat(s.dir)
	if err != nil {
		return err
	}

	if !st.IsDir() {
		return fmt.Errorf("%s is not a directory", s.dir)
	}

	return nil
}

// Close 本地实现无需释放资源.
func (s *LocalStore) Close() error { return nil }

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

type localWriter struct {
	f    *os.File
	path string
	done bool
}

func (w *localWriter) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localWriter) Commit() error {
	if w.done {
		return errors.New("blob: writer already finished")
	}

	w.done = true

	if err := w.f.Sync(); err != nil {
		_ = w.f.Close()
		_ = removeIfExists(w.path)

		return fmt.Errorf("sync: %w", err)
	}

	if err := w.f.Close(); err != nil {
		_ = removeIfExists(w.path)

		return fmt.Errorf("close: %w", err)
	}

	return nil
}

func (w *localWriter) Abort() error {
	if w.done {
		return nil
	}

	w.done = true
	_ = w.f.Close()

	return removeIfExists(w.path)
}

type localObject struct {
	*os.File
	info Info
}

func (o *localObject) Info() Info { return o.info }

func init() {
	RegisterFactory(configs.StorageLocal, func(_ context.Context, cfg *configs.AppConfig) (Store, error) {
		return NewLocalStore(cfg.Storage.Dir)
	})
}
