// Package classifier asks an external image classification service whether a picture shows a cat.
package classifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/lk2023060901/cat-gallery/internal/pkg/logger"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Config 分类服务配置，URL 为空时不做分类
type Config struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Result 分类结果
type Result struct {
	CatProbability float64
	IsCat          bool
}

// Client 分类服务客户端
type Client struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// New 创建分类客户端
func New(cfg Config, lgr *logger.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if lgr == nil {
		lgr = logger.L()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  lgr.Named("classifier"),
	}
}

// Enabled 是否配置了分类服务
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// Classify 上传图片到 {url}/predict
func (c *Client) Classify(ctx context.Context, filename string, data []byte) (Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return Result{}, fmt.Errorf("failed to write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Result{}, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", &body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("classifier returned status %d: %s", resp.StatusCode, string(payload))
	}
	if !gjson.ValidBytes(payload) {
		return Result{}, fmt.Errorf("classifier returned invalid JSON")
	}

	parsed := gjson.ParseBytes(payload)
	isCat := parsed.Get("is_cat")
	if !isCat.Exists() {
		return Result{}, fmt.Errorf("classifier response lacks is_cat")
	}

	result := Result{
		CatProbability: parsed.Get("cat_probability").Float(),
		IsCat:          isCat.Bool(),
	}

	c.logger.WithContext(ctx).Debug("image classified",
		zap.String("filename", filename),
		zap.Float64("cat_probability", result.CatProbability),
		zap.Bool("is_cat", result.IsCat),
	)
	return result, nil
}
