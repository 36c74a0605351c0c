// Package remote 远程资源主机的探测与皮肤列表获取
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goconsole/pkg/optional"
	"github.com/goconsole/pkg/utils"
	"github.com/goconsole/services/assets/internal/asset"
	"github.com/valyala/fasthttp"
)

// ProbeResult HEAD 探测结果
type ProbeResult struct {
	OK           bool
	Status       int
	ETag         optional.Value[string]
	LastModified optional.Value[string]
}

// Client 基于 fasthttp 的远程客户端
type Client struct {
	http         *fasthttp.Client
	skinListPath string
	fetchTimeout time.Duration
}

// NewClient 创建客户端，skinListPath 为相对基础地址的皮肤列表路径
func NewClient(skinListPath string) *Client {
	return &Client{
		http: &fasthttp.Client{
			Name:                "goconsole-assets",
			MaxConnsPerHost:     64,
			MaxIdleConnDuration: 30 * time.Second,
		},
		skinListPath: skinListPath,
		fetchTimeout: 5 * time.Second,
	}
}

// deadline 取 timeout 与 ctx 截止时间中较早的一个
func deadline(ctx context.Context, timeout time.Duration) time.Time {
	d := time.Now().Add(timeout)
	if cd, ok := ctx.Deadline(); ok && cd.Before(d) {
		return cd
	}
	return d
}

// Probe 只请求响应头。非 2xx 返回 OK=false，网络错误与超时返回 error
func (c *Client) Probe(ctx context.Context, url string, timeout time.Duration) (ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return ProbeResult{}, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodHead)
	resp.SkipBody = true

	if err := c.http.DoDeadline(req, resp, deadline(ctx, timeout)); err != nil {
		return ProbeResult{}, fmt.Errorf("probe %s: %w", url, err)
	}

	status := resp.StatusCode()
	result := ProbeResult{
		OK:     status >= 200 && status < 300,
		Status: status,
	}
	if etag := asset.NormalizeETag(string(resp.Header.Peek(fasthttp.HeaderETag))); etag != "" {
		result.ETag = optional.Some(etag)
	}
	if lm := strings.TrimSpace(string(resp.Header.Peek(fasthttp.HeaderLastModified))); lm != "" {
		result.LastModified = optional.Some(lm)
	}
	return result, nil
}

// skinList 皮肤列表的两种响应格式：["a","b"] 或 {"skins":["a","b"]}
type skinList struct {
	Skins []string `json:"skins"`
}

// FetchSkins 获取远程皮肤列表，结果去重排序
func (c *Client) FetchSkins(ctx context.Context, baseURL string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if baseURL == "" {
		return nil, fmt.Errorf("fetch skins: base url not configured")
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	url := strings.TrimRight(baseURL, "/") + asset.NormalizePath(c.skinListPath)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAccept, "application/json")

	if err := c.http.DoDeadline(req, resp, deadline(ctx, c.fetchTimeout)); err != nil {
		return nil, fmt.Errorf("fetch skins %s: %w", url, err)
	}
	if status := resp.StatusCode(); status != fasthttp.StatusOK {
		return nil, fmt.Errorf("fetch skins %s: unexpected status %d", url, status)
	}

	return parseSkins(resp.Body())
}

func parseSkins(body []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(body, &list); err == nil {
		return utils.SortedStrings(list), nil
	}
	var wrapped skinList
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decode skin list: %w", err)
	}
	return utils.SortedStrings(wrapped.Skins), nil
}
