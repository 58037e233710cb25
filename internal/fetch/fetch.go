// 包 fetch 封装共享的 HTTP 客户端（代理/显式超时），供来源 API、订阅源与 Notion 写入使用。
// - Do：单次请求，不重试（API 调用与记录写入）
// - Get：订阅源抓取，可配置有限次数的线性回退重试
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"
)

const defaultUA = "x-notion-sync/1.0 (+https://github.com)"

// Client 为带超时的 HTTP 客户端。
type Client struct {
	http  *http.Client
	retry int
}

// Options 为客户端构造参数。
type Options struct {
	ProxyHTTP  string
	ProxyHTTPS string
	Timeout    time.Duration
	Retry      int
}

// New 创建客户端：连接/握手/响应头都有独立上限，整体超时默认 20 秒。
func New(opts Options) (*Client, error) {
	for _, p := range []string{opts.ProxyHTTP, opts.ProxyHTTPS} {
		if p == "" {
			continue
		}
		if _, err := url.Parse(p); err != nil {
			return nil, fmt.Errorf("parse proxy %s: %w", p, err)
		}
	}
	transport := &http.Transport{
		Proxy: func(req *http.Request) (*url.URL, error) {
			if req.URL.Scheme == "https" && opts.ProxyHTTPS != "" {
				return url.Parse(opts.ProxyHTTPS)
			}
			if req.URL.Scheme == "http" && opts.ProxyHTTP != "" {
				return url.Parse(opts.ProxyHTTP)
			}
			return http.ProxyFromEnvironment(req)
		},
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Retry < 0 {
		opts.Retry = 0
	}
	ua := os.Getenv("XNS_UA")
	if ua == "" {
		ua = defaultUA
	}
	return &Client{
		http:  &http.Client{Transport: uaTransport{next: transport, ua: ua}, Timeout: opts.Timeout},
		retry: opts.Retry,
	}, nil
}

// uaTransport 为未设置 User-Agent 的请求补上默认值。
type uaTransport struct {
	next http.RoundTripper
	ua   string
}

func (t uaTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") != "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.ua)
	return t.next.RoundTrip(r)
}

// HTTPClient 返回底层 *http.Client（同样的代理/超时/UA），供 SDK 客户端复用。
func (c *Client) HTTPClient() *http.Client { return c.http }

// Do 发送单次请求，调用方负责关闭响应体与检查状态码。
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.http.Do(req)
}

// Get 抓取 URL，非 2xx 视为失败并按 retry 次数线性回退重试。
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	var lastErr error
	for i := 0; i <= c.retry; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("new request: %w", err)
		}
		resp, err := c.Do(req)
		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		if err == nil {
			lastErr = fmt.Errorf("http status: %s", resp.Status)
			resp.Body.Close()
		} else {
			lastErr = err
		}
		if i == c.retry {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * 300 * time.Millisecond):
		}
	}
	return nil, lastErr
}
