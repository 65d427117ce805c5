package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"jobtrail/internal/database"
	"jobtrail/internal/docgen"
	"jobtrail/internal/enrich"
)

type fakeStorage struct {
	uploaded        map[string][]byte
	deletedPrefixes []string
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploaded: map[string][]byte{}}
}

func (s *fakeStorage) UploadFile(_ context.Context, objectName string, reader io.Reader, _ int64, _ string) (*minio.UploadInfo, error) {
	b, _ := io.ReadAll(reader)
	s.uploaded[objectName] = b
	return &minio.UploadInfo{Key: objectName}, nil
}

func (s *fakeStorage) GeneratePresignedURL(_ context.Context, objectKey string, _ time.Duration) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) GeneratePresignedURLWithParams(_ context.Context, objectKey string, _ time.Duration, _ map[string]string) (string, error) {
	return "https://example.invalid/" + objectKey, nil
}

func (s *fakeStorage) OpenObject(_ context.Context, objectKey string) (io.ReadCloser, error) {
	b, ok := s.uploaded[objectKey]
	if !ok {
		return nil, fmt.Errorf("object %q not found", objectKey)
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *fakeStorage) DeletePrefix(_ context.Context, prefix string) error {
	s.deletedPrefixes = append(s.deletedPrefixes, prefix)
	for k := range s.uploaded {
		if strings.HasPrefix(k, prefix) {
			delete(s.uploaded, k)
		}
	}
	return nil
}

type fakeGenerator struct {
	lastKind docgen.Kind
	lastData docgen.DocumentData
	err      error
}

func (g *fakeGenerator) Generate(_ context.Context, kind docgen.Kind, data docgen.DocumentData, _ string) ([]byte, error) {
	g.lastKind = kind
	g.lastData = data
	if g.err != nil {
		return nil, g.err
	}
	return []byte("%PDF-1.7 fake"), nil
}

type fakeEnricher struct {
	result *enrich.Result
	err    error
	calls  int
}

func (f *fakeEnricher) Enrich(_ context.Context, _ string) (*enrich.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeRateCounter struct {
	counts map[string]int64
}

func newFakeRateCounter() *fakeRateCounter {
	return &fakeRateCounter{counts: map[string]int64{}}
}

func (f *fakeRateCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeRateCounter) Expire(_ context.Context, _ string, _ time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", url.QueryEscape(t.Name()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(database.AllModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, subject string) database.User {
	t.Helper()
	user := database.User{ExternalSubject: subject, Email: subject + "@example.com"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func seedJob(t *testing.T, db *gorm.DB, job database.Job) database.Job {
	t.Helper()
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	return job
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewBuffer(b)
}

// testContext builds a gin context backed by a recorder with the
// authenticated user already resolved.
func testContext(w *httptest.ResponseRecorder, method, target string, body io.Reader, userID uint) *gin.Context {
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.Request = req
	if userID != 0 {
		c.Set("userID", userID)
	}
	return c
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

func newMultipartUpload(t *testing.T, category, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("type", category); err != nil {
		t.Fatalf("write type field: %v", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}
