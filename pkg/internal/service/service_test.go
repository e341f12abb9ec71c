package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yeisme/filehost/pkg/configs"
	"github.com/yeisme/filehost/pkg/internal/model"
	"github.com/yeisme/filehost/pkg/internal/service"
	"github.com/yeisme/filehost/pkg/internal/storage/blob"
	"github.com/yeisme/filehost/pkg/internal/storage/db"
	"github.com/yeisme/filehost/pkg/internal/storage/kv"
	"github.com/yeisme/filehost/pkg/internal/types"
)

const maxUploadMB = 1

type env struct {
	dir     string
	client  *db.Client
	clock   *clockwork.FakeClock
	blobs   *blob.LocalStore
	records *service.RecordStore
	reaper  *service.Reaper
	files   *service.FileService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	ctx := context.Background()
	root := t.TempDir()
	dir := filepath.Join(root, "files")

	blobs, err := blob.NewLocalStore(dir)
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}

	client, err := db.New(ctx, &configs.DBConfig{
		Type:          configs.SQLite,
		Path:          filepath.Join(root, "app.db"),
		BusyTimeoutMS: 5000,
		LogLevel:      "silent",
	}, false)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	t.Cleanup(func() { _ = client.Close() })

	kvStore, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("kv: %v", err)
	}

	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	records := service.NewRecordStore(client.DB, kvStore, time.Minute, clock)

	if err := records.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	reaper := service.NewReaper(records, blobs, nil, clock)
	files := service.NewFileService(records, blobs, reaper, nil, configs.StorageConfig{
		Dir:         dir,
		MaxUploadMB: maxUploadMB,
		BaseURL:     "http://localhost:8110",
	}, clock)

	return &env{dir: dir, client: client, clock: clock, blobs: blobs, records: records, reaper: reaper, files: files}
}

func (e *env) fileCount(t *testing.T) int {
	t.Helper()

	entries, err := os.ReadDir(e.dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}

	return len(entries)
}

func (e *env) rowCount(t *testing.T) int64 {
	t.Helper()

	n, err := e.records.Count(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}

	return n
}

func readAll(t *testing.T, d *service.Download) []byte {
	t.Helper()

	defer d.Close()

	b, err := io.ReadAll(d.Content)
	if err != nil {
		t.Fatalf("read download: %v", err)
	}

	return b
}

func TestIngestForeverRoundTrip(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	payload := []byte("0123456789")

	rec, err := e.files.Ingest(ctx, bytes.NewReader(payload), "a.txt", "forever")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if rec.Size != 10 || rec.Mime != "text/plain" || rec.ExpiresAt != nil {
		t.Fatalf("record = %+v", rec)
	}

	if len(rec.ID) != 12 {
		t.Fatalf("id %q has wrong length", rec.ID)
	}

	if e.files.URL(rec.ID) != "http://localhost:8110/files/"+rec.ID {
		t.Fatalf("url = %q", e.files.URL(rec.ID))
	}

	d, err := e.files.Retrieve(ctx, rec.ID)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	if d.File.OrigName != "a.txt" || d.File.Mime != "text/plain" {
		t.Fatalf("download meta = %+v", d.File)
	}

	if got := readAll(t, d); !bytes.Equal(got, payload) {
		t.Fatalf("content = %q, want %q", got, payload)
	}
}

func TestIngestEmptyExpiryIsForever(t *testing.T) {
	e := newEnv(t)

	rec, err := e.files.Ingest(context.Background(), strings.NewReader(""), "empty.bin", "")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if rec.Size != 0 || rec.ExpiresAt != nil || rec.Mime != "application/octet-stream" {
		t.Fatalf("record = %+v", rec)
	}
}

func TestExpiredFileIsGoneAndPurged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.files.Ingest(ctx, strings.NewReader("short lived"), "note.md", "1m")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if rec.ExpiresAt == nil || *rec.ExpiresAt != "2026-05-01T12:01:00.000000+00:00" {
		t.Fatalf("expires_at = %v", rec.ExpiresAt)
	}

	d, err := e.files.Retrieve(ctx, rec.ID)
	if err != nil {
		t.Fatalf("retrieve before expiry: %v", err)
	}

	_ = d.Close()

	e.clock.Advance(61 * time.Second)

	if _, err := e.files.Retrieve(ctx, rec.ID); !errors.Is(err, service.ErrGone) {
		t.Fatalf("retrieve after expiry err = %v, want ErrGone", err)
	}

	if ok, _ := e.blobs.Exists(ctx, rec.ID); ok {
		t.Fatal("expired file still on disk")
	}

	if ok, _ := e.records.Exists(ctx, rec.ID); ok {
		t.Fatal("expired row still present")
	}

	if _, err := e.files.Retrieve(ctx, rec.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("retrieve after purge err = %v, want ErrNotFound", err)
	}
}

func TestExpiryBoundaryIsInclusive(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.files.Ingest(ctx, strings.NewReader("x"), "x.txt", "1m")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	e.clock.Advance(time.Minute)

	if _, err := e.files.Retrieve(ctx, rec.ID); !errors.Is(err, service.ErrGone) {
		t.Fatalf("err = %v, want ErrGone at exact expiry", err)
	}
}

func TestInvalidExpiryRejectedBeforeIO(t *testing.T) {
	e := newEnv(t)

	_, err := e.files.Ingest(context.Background(), strings.NewReader("data"), "a.txt", "zzz")
	if !errors.Is(err, service.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}

	if e.fileCount(t) != 0 || e.rowCount(t) != 0 {
		t.Fatal("invalid expiry left state behind")
	}
}

func TestEmptyNameRejected(t *testing.T) {
	e := newEnv(t)

	_, err := e.files.Ingest(context.Background(), strings.NewReader("data"), "", "1h")
	if !errors.Is(err, service.ErrBadRequest) {
		t.Fatalf("err = %v, want ErrBadRequest", err)
	}

	if e.fileCount(t) != 0 {
		t.Fatal("file created for rejected upload")
	}
}

func TestOversizeUploadLeavesNothing(t *testing.T) {
	e := newEnv(t)
	limit := e.files.MaxBytes()

	_, err := e.files.Ingest(context.Background(), bytes.NewReader(make([]byte, limit+1)), "big.bin", "1d")
	if !errors.Is(err, service.ErrPayloadTooLarge) {
		t.Fatalf("err = %v, want ErrPayloadTooLarge", err)
	}

	if msg := service.Message(err, "x"); !strings.Contains(msg, "1048576") {
		t.Fatalf("message %q does not name the limit", msg)
	}

	if e.fileCount(t) != 0 || e.rowCount(t) != 0 {
		t.Fatal("oversize upload left state behind")
	}
}

func TestUploadAtLimitSucceeds(t *testing.T) {
	e := newEnv(t)
	limit := e.files.MaxBytes()

	rec, err := e.files.Ingest(context.Background(), bytes.NewReader(make([]byte, limit)), "exact.bin", "1d")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if rec.Size != limit {
		t.Fatalf("size = %d, want %d", rec.Size, limit)
	}
}

type failingReader struct{ n int }

func (r *failingReader) Read(p []byte) (int, error) {
	if r.n > 0 {
		r.n--
		return copy(p, "chunk"), nil
	}

	return 0, errors.New("connection reset")
}

func TestReadFailureCleansUp(t *testing.T) {
	e := newEnv(t)

	_, err := e.files.Ingest(context.Background(), &failingReader{n: 3}, "a.txt", "1h")
	if !errors.Is(err, service.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}

	if e.fileCount(t) != 0 || e.rowCount(t) != 0 {
		t.Fatal("failed upload left state behind")
	}
}

func TestCancelledUploadCleansUp(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.files.Ingest(ctx, strings.NewReader("data"), "a.txt", "1h"); err == nil {
		t.Fatal("expected error for cancelled upload")
	}

	if e.fileCount(t) != 0 || e.rowCount(t) != 0 {
		t.Fatal("cancelled upload left state behind")
	}
}

func TestStageThenDiscard(t *testing.T) {
	e := newEnv(t)

	up, err := e.files.Stage(context.Background(), strings.NewReader("data"), "a.txt")
	if err != nil {
		t.Fatalf("stage: %v", err)
	}

	if e.fileCount(t) != 1 {
		t.Fatal("staged file not on disk")
	}

	if err := up.Discard(); err != nil {
		t.Fatalf("discard: %v", err)
	}

	if e.fileCount(t) != 0 || e.rowCount(t) != 0 {
		t.Fatal("discarded upload left state behind")
	}
}

func TestUnknownIDNotFound(t *testing.T) {
	e := newEnv(t)

	for _, id := range []string{"AAAAAAAAAAAA", "short", "../../etc/x"} {
		if _, err := e.files.Retrieve(context.Background(), id); !errors.Is(err, service.ErrNotFound) {
			t.Errorf("retrieve %q err = %v, want ErrNotFound", id, err)
		}
	}
}

func TestMissingFileIsGoneAndRowKept(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.files.Ingest(ctx, strings.NewReader("data"), "a.txt", "forever")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if err := os.Remove(filepath.Join(e.dir, rec.ID)); err != nil {
		t.Fatalf("remove out of band: %v", err)
	}

	if _, err := e.files.Retrieve(ctx, rec.ID); !errors.Is(err, service.ErrGone) {
		t.Fatalf("err = %v, want ErrGone", err)
	}

	if ok, _ := e.records.Exists(ctx, rec.ID); !ok {
		t.Fatal("row deleted by a plain read")
	}
}

func TestPurgeExpiredIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	var keep string

	for i, exp := range []string{"1m", "1m", "1h", "forever", "1m"} {
		rec, err := e.files.Ingest(ctx, strings.NewReader("payload"), "f.txt", exp)
		if err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}

		if exp == "1h" {
			keep = rec.ID
		}
	}

	e.clock.Advance(2 * time.Minute)

	n, err := e.reaper.Sweep(ctx)
	if err != nil || n != 3 {
		t.Fatalf("first sweep = %d, %v; want 3", n, err)
	}

	n, err = e.reaper.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("second sweep = %d, %v; want 0", n, err)
	}

	if e.fileCount(t) != 2 || e.rowCount(t) != 2 {
		t.Fatalf("files=%d rows=%d, want 2/2", e.fileCount(t), e.rowCount(t))
	}

	if ok, _ := e.records.Exists(ctx, keep); !ok {
		t.Fatal("unexpired row was purged")
	}
}

func TestPurgeToleratesMissingFile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.files.Ingest(ctx, strings.NewReader("data"), "a.txt", "1m")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	_ = os.Remove(filepath.Join(e.dir, rec.ID))
	e.clock.Advance(time.Hour)

	n, err := e.reaper.Sweep(ctx)
	if err != nil || n != 1 {
		t.Fatalf("sweep = %d, %v; want 1", n, err)
	}
}

func TestPurgeManyBatches(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const total = service.DefaultPurgeBatch*2 + 7

	for i := range total {
		if _, err := e.files.Ingest(ctx, strings.NewReader("x"), "x.txt", "1m"); err != nil {
			t.Fatalf("ingest %d: %v", i, err)
		}
	}

	e.clock.Advance(time.Hour)

	n, err := e.reaper.Sweep(ctx)
	if err != nil || n != total {
		t.Fatalf("sweep = %d, %v; want %d", n, err, total)
	}
}

func TestMalformedExpiryTreatedAsNotExpired(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.files.Ingest(ctx, strings.NewReader("legacy"), "old.txt", "forever")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// 直接写入一条格式异常的旧记录
	bad := "not-a-date"
	legacy := &model.File{ID: "LegacyRow001", OrigName: "old.txt", Mime: "text/plain", Size: 6,
		UploadedAt: rec.UploadedAt, ExpiresAt: &bad}

	if err := e.records.Insert(ctx, legacy); err != nil {
		t.Fatalf("insert legacy: %v", err)
	}

	w, err := e.blobs.Create(ctx, legacy.ID)
	if err != nil {
		t.Fatalf("create legacy blob: %v", err)
	}

	_, _ = w.Write([]byte("legacy"))
	_ = w.Commit()

	e.clock.Advance(24 * time.Hour)

	d, err := e.files.Retrieve(ctx, legacy.ID)
	if err != nil {
		t.Fatalf("retrieve legacy: %v", err)
	}

	if got := readAll(t, d); string(got) != "legacy" {
		t.Fatalf("content = %q", got)
	}
}

func TestLegacyTimestampFormatsExpire(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	past := "2026-05-01 11:00:00"
	legacy := &model.File{ID: "LegacyRow002", OrigName: "old.txt", Mime: "text/plain", Size: 0,
		UploadedAt: "2026-04-01 11:00:00", ExpiresAt: &past}

	if err := e.records.Insert(ctx, legacy); err != nil {
		t.Fatalf("insert legacy: %v", err)
	}

	if _, err := e.files.Retrieve(ctx, legacy.ID); !errors.Is(err, service.ErrGone) {
		t.Fatalf("err = %v, want ErrGone", err)
	}
}

func TestDuplicateInsert(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	f := &model.File{ID: "DupRow000001", OrigName: "a", Mime: "text/plain", UploadedAt: "2026-05-01T12:00:00.000000+00:00"}
	if err := e.records.Insert(ctx, f); err != nil {
		t.Fatalf("insert: %v", err)
	}

	g := *f
	if err := e.records.Insert(ctx, &g); !errors.Is(err, service.ErrDuplicateID) {
		t.Fatalf("err = %v, want ErrDuplicateID", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	e := newEnv(t)

	for range 2 {
		if err := e.records.Migrate(context.Background()); err != nil {
			t.Fatalf("migrate: %v", err)
		}
	}
}

func TestAdminPurgeByID(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.files.Ingest(ctx, strings.NewReader("data"), "a.txt", "forever")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	// 先读取一次，让记录进入缓存
	d, err := e.files.Retrieve(ctx, rec.ID)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}

	_ = d.Close()

	n, err := e.reaper.PurgeID(ctx, rec.ID)
	if err != nil || n != 1 {
		t.Fatalf("purge id = %d, %v; want 1", n, err)
	}

	if _, err := e.files.Retrieve(ctx, rec.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("err after admin purge = %v, want ErrNotFound", err)
	}

	n, err = e.reaper.PurgeID(ctx, rec.ID)
	if err != nil || n != 0 {
		t.Fatalf("second purge id = %d, %v; want 0", n, err)
	}
}

func TestConcurrentUploadsGetUniqueIDs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	const n = 16

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]struct{}{}
		errs = make(chan error, n)
	)

	for range n {
		wg.Add(1)

		go func() {
			defer wg.Done()

			rec, err := e.files.Ingest(ctx, strings.NewReader("same bytes"), "same.txt", "1d")
			if err != nil {
				errs <- err
				return
			}

			mu.Lock()
			seen[rec.ID] = struct{}{}
			mu.Unlock()
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("ingest: %v", err)
	}

	if len(seen) != n || e.rowCount(t) != n || e.fileCount(t) != n {
		t.Fatalf("ids=%d rows=%d files=%d, want %d", len(seen), e.rowCount(t), e.fileCount(t), n)
	}
}

func TestDetectMime(t *testing.T) {
	cases := map[string]string{
		"a.txt":       "text/plain",
		"A.PNG":       "image/png",
		"noext":       "application/octet-stream",
		"weird.zzzzz": "application/octet-stream",
		"page.html":   "text/html",
	}

	for name, want := range cases {
		if got := service.DetectMime(name); got != want {
			t.Errorf("DetectMime(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestExpiryChoicesDeadline(t *testing.T) {
	e := newEnv(t)
	now := e.clock.Now()

	rec, err := e.files.Ingest(context.Background(), strings.NewReader("y"), "y.txt", string(types.ExpiryYear))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	want := model.FormatTime(now.Add(365 * 24 * time.Hour))
	if rec.ExpiresAt == nil || *rec.ExpiresAt != want {
		t.Fatalf("expires_at = %v, want %s", rec.ExpiresAt, want)
	}
}

// hookKV 在第一次写入缓存前执行 beforeSet，模拟与读并发的删除.
type hookKV struct {
	kv.KVStore

	once      sync.Once
	beforeSet func()
}

func (h *hookKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	h.once.Do(h.beforeSet)

	return h.KVStore.Set(ctx, key, value, ttl)
}

func TestDeleteDuringCacheFillDoesNotResurrectRecord(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	mem, err := kv.NewKVStore(ctx, kv.KVTypeMemory, nil)
	if err != nil {
		t.Fatalf("kv: %v", err)
	}

	store := &hookKV{KVStore: mem}
	records := service.NewRecordStore(e.client.DB, store, time.Minute, e.clock)

	f := &model.File{ID: "RaceRow00001", OrigName: "a", Mime: "text/plain", UploadedAt: "2026-05-01T12:00:00.000000+00:00"}
	if err := records.Insert(ctx, f); err != nil {
		t.Fatalf("insert: %v", err)
	}

	store.beforeSet = func() {
		if n, err := records.Delete(ctx, f.ID); err != nil || n != 1 {
			t.Errorf("delete = %d, %v", n, err)
		}
	}

	if _, err := records.Get(ctx, f.ID); err != nil {
		t.Fatalf("first get: %v", err)
	}

	if _, err := records.Get(ctx, f.ID); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("get after delete err = %v, want ErrNotFound", err)
	}
}
