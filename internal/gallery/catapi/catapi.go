// Package catapi fetches random pictures from thecatapi.com as gallery drafts.
package catapi

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/gallery/biz"
	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL = "https://api.thecatapi.com"
	// ImportDescription 导入条目的描述
	ImportDescription = "Importiert von thecatapi.com"
	// ImportRating 导入条目的默认评分
	ImportRating = 5
)

// Config thecatapi 配置
type Config struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxImageBytes 单张图片大小上限
	MaxImageBytes int64 `mapstructure:"max_image_bytes"`
}

// Client thecatapi 客户端
type Client struct {
	cfg    Config
	client *http.Client
	logger *logger.Logger
}

// New 创建客户端
func New(cfg Config, lgr *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxImageBytes == 0 {
		cfg.MaxImageBytes = 20 << 20
	}
	if lgr == nil {
		lgr = logger.L()
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: lgr.Named("catapi"),
	}
}

// searchPath 只请求 jpg/png，gif 等格式无法保存
const searchPath = "/v1/images/search?mime_types=jpg,png"

// ErrNoUsableImage 搜索结果中没有 jpg/jpeg/png 图片
var ErrNoUsableImage = errors.New("no jpg or png image in search result")

// Random 取一张随机图片并生成待保存的条目
func (c *Client) Random(ctx context.Context) (biz.NewEntry, error) {
	payload, err := c.get(ctx, c.cfg.BaseURL+searchPath, true)
	if err != nil {
		return biz.NewEntry{}, fmt.Errorf("search images: %w", err)
	}
	if !gjson.ValidBytes(payload) {
		return biz.NewEntry{}, fmt.Errorf("search images: invalid JSON")
	}

	results := gjson.ParseBytes(payload).Array()
	if len(results) == 0 {
		return biz.NewEntry{}, fmt.Errorf("search images: empty result")
	}

	var id, imageURL, filename string
	for _, r := range results {
		u := r.Get("url").String()
		if r.Get("id").String() == "" || u == "" {
			continue
		}
		name, err := basename(u)
		if err != nil || !biz.IsImageName(name) {
			c.logger.WithContext(ctx).Debug("skipping unsupported image", zap.String("url", u))
			continue
		}
		id, imageURL, filename = r.Get("id").String(), u, name
		break
	}
	if imageURL == "" {
		return biz.NewEntry{}, fmt.Errorf("search images: %w", ErrNoUsableImage)
	}

	image, err := c.get(ctx, imageURL, false)
	if err != nil {
		return biz.NewEntry{}, fmt.Errorf("download %s: %w", imageURL, err)
	}

	c.logger.WithContext(ctx).Info("cat image fetched",
		zap.String("image_id", id),
		zap.String("filename", filename),
		zap.Int("size", len(image)),
	)

	return biz.NewEntry{
		Title:       id,
		Description: ImportDescription,
		Rating:      ImportRating,
		Filename:    filename,
		Bytes:       base64.StdEncoding.EncodeToString(image),
	}, nil
}

func (c *Client) get(ctx context.Context, rawURL string, withKey bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if withKey && c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxImageBytes {
		return nil, fmt.Errorf("response exceeds %d bytes", c.cfg.MaxImageBytes)
	}
	return body, nil
}

// basename 取 URL 路径的最后一段，忽略查询参数
func basename(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse image url: %w", err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("image url %q has no file name", rawURL)
	}
	return name, nil
}
