package integration

import (
	"context"
	"io"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"
)

// feedStub 模拟 SOFA 上游：支持 ETag 条件请求、热更新正文与故障注入，
// 供集成测试复用。
type feedStub struct {
	server   *http.Server
	listener net.Listener
	URL      string

	mu       sync.Mutex
	body     []byte
	etag     string
	failWith int
	requests []RecordedRequest
}

// RecordedRequest 捕获每次请求的方法/路径/Headers，便于断言条件抓取行为。
type RecordedRequest struct {
	Method  string
	Path    string
	Headers http.Header
}

func newFeedStub(t *testing.T, body string, etag string) *feedStub {
	t.Helper()

	stub := &feedStub{
		body: []byte(body),
		etag: etag,
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Skipf("unable to start feed stub listener: %v", err)
	}
	server := &http.Server{Handler: http.HandlerFunc(stub.handle)}

	stub.server = server
	stub.listener = listener
	stub.URL = "http://" + listener.Addr().String()

	go func() {
		_ = server.Serve(listener)
	}()

	t.Cleanup(stub.Close)
	return stub
}

func (s *feedStub) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: r.Header.Clone(),
	})
	body := append([]byte(nil), s.body...)
	etag := s.etag
	failWith := s.failWith
	s.mu.Unlock()

	_, _ = io.Copy(io.Discard, r.Body)

	if failWith != 0 {
		w.WriteHeader(failWith)
		return
	}

	if etag != "" {
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("Etag", etag)
	}
	_, _ = w.Write(body)
}

// Update 替换正文与令牌，模拟上游发布新 feed。
func (s *feedStub) Update(body string, etag string) {
	s.mu.Lock()
	s.body = []byte(body)
	s.etag = etag
	s.mu.Unlock()
}

// FailWith 让后续请求固定返回指定状态码，0 表示恢复正常。
func (s *feedStub) FailWith(status int) {
	s.mu.Lock()
	s.failWith = status
	s.mu.Unlock()
}

func (s *feedStub) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]RecordedRequest, len(s.requests))
	copy(result, s.requests)
	return result
}

func (s *feedStub) Close() {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if s.server != nil {
		_ = s.server.Shutdown(ctx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
}
