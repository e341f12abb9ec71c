package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/filehost/pkg/configs"
	nlog "github.com/yeisme/filehost/pkg/log"
)

const s3ContentType = "application/octet-stream"

// S3Store 以 S3 兼容存储的存储桶作为存储卷.
//
// 独占创建由进程内的预留集合与 StatObject 共同保证，只适用于单实例部署.
type S3Store struct {
	cli    *minio.Client
	bucket string

	mu       sync.Mutex
	reserved map[string]struct{}
}

// NewS3Store 初始化 MinIO 客户端，存储桶不存在时尝试创建.
func NewS3Store(ctx context.Context, cfg configs.S3Config) (*S3Store, error) {
	endpoint := cfg.Endpoint
	// 允许传入带 scheme 的 endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			cfg.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("filehost", configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}

	if !exists {
		if err := cli.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
		}

		nlog.Logger().Info().Str("bucket", cfg.BucketName).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("s3 connected")

	return &S3Store{cli: cli, bucket: cfg.BucketName, reserved: make(map[string]struct{})}, nil
}

func (s *S3Store) reserve(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reserved[id]; ok {
		return false
	}

	s.reserved[id] = struct{}{}

	return true
}

func (s *S3Store) release(id string) {
	s.mu.Lock()
	delete(s.reserved, id)
	s.mu.Unlock()
}

// Create 预留 id 并以流式上传写入对象.
func (s *S3Store) Create(ctx context.Context, id string) (Writer, error) {
	if !validID(id) {
		return nil, ErrInvalidID
	}

	if !s.reserve(id) {
		return nil, ErrExist
	}

	ok, err := s.Exists(ctx, id)
	if err != nil {
		s.release(id)
		return nil, err
	}

	if ok {
		s.release(id)
		return nil, ErrExist
	}

	pr, pw := io.Pipe()
	w := &s3Writer{store: s, id: id, pw: pw, done: make(chan error, 1)}

	// 上传使用独立的 ctx，由 Abort 负责中断
	upCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.cancel = cancel

	go func() {
		_, err := s.cli.PutObject(upCtx, s.bucket, id, pr, -1, minio.PutObjectOptions{ContentType: s3ContentType})
		_ = pr.CloseWithError(err)
		w.done <- err
	}()

	return w, nil
}

// Open 读取对象.
func (s *S3Store) Open(ctx context.Context, id string) (Object, error) {
	if !validID(id) {
		return nil, ErrNotExist
	}

	st, err := s.cli.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotExist
		}

		return nil, fmt.Errorf("stat %s: %w", id, err)
	}

	obj, err := s.cli.GetObject(ctx, s.bucket, id, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}

	return &s3Object{Object: obj, info: Info{Size: st.Size, ModTime: st.LastModified}}, nil
}

// Remove 删除对象，S3 删除不存在的对象同样返回成功.
func (s *S3Store) Remove(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}

	err := s.cli.RemoveObject(ctx, s.bucket, id, minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return fmt.Errorf("remove %s: %w", id, err)
	}

	return nil
}

// Exists 检查对象是否存在.
func (s *S3Store) Exists(ctx context.Context, id string) (bool, error) {
	if !validID(id) {
		return false, nil
	}

	_, err := s.cli.StatObject(ctx, s.bucket, id, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}

	if isNoSuchKey(err) {
		return false, nil
	}

	return false, fmt.Errorf("stat %s: %w", id, err)
}

// Ping 通过检查存储桶验证连接.
func (s *S3Store) Ping(ctx context.Context) error {
	ok, err := s.cli.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("bucket %s not found", s.bucket)
	}

	return nil
}

// Close 无实际操作.
func (s *S3Store) Close() error { return nil }

func isNoSuchKey(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.StatusCode == 404
}

type s3Writer struct {
	store    *S3Store
	id       string
	pw       *io.PipeWriter
	done     chan error
	cancel   context.CancelFunc
	finished bool
}

func (w *s3Writer) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

func (w *s3Writer) Commit() error {
	if w.finished {
		return errors.New("blob: writer already finished")
	}

	w.finished = true
	defer w.store.release(w.id)
	defer w.cancel()

	_ = w.pw.Close()

	if err := <-w.done; err != nil {
		return fmt.Errorf("put %s: %w", w.id, err)
	}

	return nil
}

func (w *s3Writer) Abort() error {
	if w.finished {
		return nil
	}

	w.finished = true
	defer w.store.release(w.id)

	_ = w.pw.CloseWithError(errors.New("blob: upload aborted"))
	w.cancel()
	<-w.done

	return w.store.Remove(context.Background(), w.id)
}

type s3Object struct {
	*minio.Object
	info Info
}

func (o *s3Object) Info() Info { return o.info }

func init() {
	RegisterFactory(configs.StorageS3, func(ctx context.Context, cfg *configs.AppConfig) (Store, error) {
		return NewS3Store(ctx, cfg.S3)
	})
}
