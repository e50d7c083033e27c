package feed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/sofa-check/sofa-check/internal/cache"
	"github.com/sofa-check/sofa-check/internal/logging"
)

// Source 标识一次 Fetch 返回正文的来源，便于日志与诊断接口展示降级状态。
type Source string

const (
	// SourceNetwork 表示正文来自本次上游 200 响应。
	SourceNetwork Source = "network"
	// SourceNotModified 表示上游返回 304，正文复用缓存且缓存未被改写。
	SourceNotModified Source = "not_modified"
	// SourceStale 表示上游不可达或响应异常，退回上一次缓存的正文。
	SourceStale Source = "stale"
	// SourceNone 表示既无网络结果也无缓存可用。
	SourceNone Source = "none"
)

// Result 组合正文与来源。Body 为空当且仅当 Source == SourceNone。
type Result struct {
	Body   []byte
	Source Source
}

// Empty 报告本次抓取是否没有拿到任何数据。
func (r Result) Empty() bool {
	return len(r.Body) == 0
}

// Fetcher orchestrates "读缓存令牌 → 条件 GET → 更新缓存/降级回退" 的全流程，
// 对外只暴露 Fetch，一次调用恰好发起一次网络请求，不做内部重试。
type Fetcher struct {
	client    *http.Client
	store     cache.Store
	logger    *logrus.Logger
	feedURL   string
	userAgent string
}

// NewFetcher 构造 Fetcher，所有依赖显式注入以便测试替换。
func NewFetcher(client *http.Client, store cache.Store, logger *logrus.Logger, feedURL, userAgent string) *Fetcher {
	return &Fetcher{
		client:    client,
		store:     store,
		logger:    logger,
		feedURL:   feedURL,
		userAgent: userAgent,
	}
}

// FeedURL 返回抓取目标地址，供诊断接口展示。
func (f *Fetcher) FeedURL() string {
	return f.feedURL
}

// CachedValidator 返回当前缓存的新鲜度令牌，不存在时为空串。
func (f *Fetcher) CachedValidator(ctx context.Context) string {
	data, err := f.store.Read(ctx, cache.ArtifactValidator)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			f.logger.WithError(err).WithField("action", "validator_read").Warn("validator_read_failed")
		}
		return ""
	}
	return strings.TrimSpace(string(data))
}

// Fetch 执行一次条件抓取。任何失败路径都以缓存回退或空结果收束，不向上抛错。
func (f *Fetcher) Fetch(ctx context.Context) Result {
	validator := f.CachedValidator(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.feedURL, http.NoBody)
	if err != nil {
		f.logFetchError("request_build", 0, err)
		return f.fallback(ctx, 0)
	}
	req.Header.Set("User-Agent", f.userAgent)
	if validator != "" {
		req.Header.Set("If-None-Match", validator)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		// 传输层失败（DNS/连接/超时/ctx 取消）统一走降级路径。
		f.logFetchError("transport", 0, err)
		return f.fallback(ctx, 0)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		f.persistValidator(ctx, resp.Header.Get("Etag"), validator)
		body, readErr := f.store.Read(ctx, cache.ArtifactBody)
		if readErr != nil {
			// 令牌命中但正文缺失，按无数据处理，下次抓取会重新拉全量。
			f.logFetchError("cache_body_missing", resp.StatusCode, readErr)
			return Result{Source: SourceNone}
		}
		f.logFetchOK(SourceNotModified, resp.StatusCode)
		return Result{Body: body, Source: SourceNotModified}

	case http.StatusOK:
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			f.logFetchError("body_read", resp.StatusCode, readErr)
			return f.fallback(ctx, resp.StatusCode)
		}
		f.persistValidator(ctx, resp.Header.Get("Etag"), validator)
		if writeErr := f.store.Write(ctx, cache.ArtifactBody, body); writeErr != nil {
			// 缓存写失败不影响本次结果，只损失下一次的离线回退能力。
			f.logFetchError("cache_body_write", resp.StatusCode, writeErr)
		}
		f.logFetchOK(SourceNetwork, resp.StatusCode)
		return Result{Body: body, Source: SourceNetwork}

	default:
		f.logFetchError("upstream_status", resp.StatusCode, nil)
		return f.fallback(ctx, resp.StatusCode)
	}
}

// fallback 在网络路径失败后尝试复用缓存正文，没有缓存时返回空结果。
// 读缓存时剥离取消信号：deadline 过期正是需要回退的场景。
func (f *Fetcher) fallback(ctx context.Context, status int) Result {
	body, err := f.store.Read(context.WithoutCancel(ctx), cache.ArtifactBody)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			f.logFetchError("cache_body_read", status, err)
		}
		f.logger.WithFields(logrus.Fields{
			"action":          "feed_fetch",
			"feed_url":        f.feedURL,
			"upstream_status": status,
		}).Error("no fresh data and no cache available")
		return Result{Source: SourceNone}
	}

	fields := logging.FetchFields(f.feedURL, string(SourceStale), status)
	fields["action"] = "feed_fetch"
	f.logger.WithFields(fields).Warn("serving stale cached feed")
	return Result{Body: body, Source: SourceStale}
}

// persistValidator 仅在上游给出新令牌时覆盖缓存，304 不会触发正文改写。
func (f *Fetcher) persistValidator(ctx context.Context, fresh, current string) {
	fresh = strings.TrimSpace(fresh)
	if fresh == "" || fresh == current {
		return
	}
	if err := f.store.Write(ctx, cache.ArtifactValidator, []byte(fresh)); err != nil {
		f.logFetchError("validator_write", 0, err)
	}
}

func (f *Fetcher) logFetchOK(source Source, status int) {
	fields := logging.FetchFields(f.feedURL, string(source), status)
	fields["action"] = "feed_fetch"
	f.logger.WithFields(fields).Info("feed_fetch_complete")
}

func (f *Fetcher) logFetchError(stage string, status int, err error) {
	fields := logrus.Fields{
		"action":          "feed_fetch",
		"feed_url":        f.feedURL,
		"stage":           stage,
		"upstream_status": status,
	}
	entry := f.logger.WithFields(fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Warn("feed_fetch_degraded")
}
