package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// based on https://github.com/paul-milne/zap-loki

var ErrStopped = errors.New("loki pusher is stopped")

const (
	LevelLabel     = "level"
	ErrorTypeLabel = "error_type"
)

type Logger interface {
	Error(msg string, args ...any)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	// Url of the push endpoint, e.g. https://example-prod.grafana.net/loki/api/v1/push
	Url string `validate:"required,url"`

	BatchMaxSize int           `validate:"gte=1"`
	BatchMaxWait time.Duration `validate:"gte=1"`

	// Labels are added to every stream.
	Labels map[string]string

	// Optional tenant header for multi-tenant installations.
	TenantKey   string
	TenantValue string

	// Optional basic auth.
	Username string
	Password string
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 1000
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

type LogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
	Caller    string    `json:"caller"`
	ErrorType string    `json:"error_type,omitempty"`
	Time      time.Time `json:"-"`
}

// labels are kept low-cardinality: one stream per level and error type.
func (e LogEntry) labels() map[string]string {
	labels := map[string]string{LevelLabel: e.Level}
	if e.ErrorType != "" {
		labels[ErrorTypeLabel] = e.ErrorType
	}
	return labels
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// batch groups pending lines by their stream labels.
type batch struct {
	size    int
	streams map[string]*stream
	order   []string
}

func newBatch() *batch {
	return &batch{streams: make(map[string]*stream)}
}

func (b *batch) add(labels map[string]string, value [2]string) {
	key := streamKey(labels)
	s, ok := b.streams[key]
	if !ok {
		s = &stream{Stream: labels}
		b.streams[key] = s
		b.order = append(b.order, key)
	}
	s.Values = append(s.Values, value)
	b.size++
}

func (b *batch) request() pushRequest {
	return pushRequest{Streams: lo.Map(b.order, func(key string, _ int) stream { return *b.streams[key] })}
}

func streamKey(labels map[string]string) string {
	keys := lo.Keys(labels)
	sort.Strings(keys)
	return strings.Join(lo.Map(keys, func(k string, _ int) string { return k + "=" + labels[k] }), ",")
}

type Pusher struct {
	config    *Config
	ctx       context.Context
	cancel    context.CancelFunc
	client    HTTPClient
	quit      chan struct{}
	entry     chan LogEntry
	waitGroup sync.WaitGroup
	pending   *batch
	logger    Logger
}

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {
	return NewWithClient(ctx, cfg, logger, &http.Client{Timeout: 10 * time.Second})
}

func NewWithClient(ctx context.Context, cfg Config, logger Logger, client HTTPClient) (*Pusher, error) {

	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pusher{
		config:  &cfg,
		ctx:     ctx,
		cancel:  cancel,
		client:  client,
		quit:    make(chan struct{}),
		entry:   make(chan LogEntry),
		pending: newBatch(),
		logger:  logger,
	}

	p.waitGroup.Add(1)
	go p.run()
	return p, nil
}

// Push queues a log line for the next batch. It fails once the pusher is stopped.
func (p *Pusher) Push(e LogEntry) error {
	select {
	case p.entry <- e:
		return nil
	case <-p.quit:
		return ErrStopped
	case <-p.ctx.Done():
		return ErrStopped
	}
}

// Stop flushes what is pending and waits for the last request.
func (p *Pusher) Stop() {
	close(p.quit)
	p.waitGroup.Wait()
	p.cancel()
}

func (p *Pusher) run() {
	defer p.waitGroup.Done()

	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-p.quit:
			p.flush()
			return
		case entry := <-p.entry:
			p.enqueue(entry)
			if p.pending.size >= p.config.BatchMaxSize {
				p.flush()
			}
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Pusher) enqueue(entry LogEntry) {
	line, err := json.Marshal(entry)
	if err != nil {
		p.logger.Error("failed to encode log entry", "error", err)
		return
	}

	timestamp := entry.Time
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	labels := lo.Assign(p.config.Labels, entry.labels())
	p.pending.add(labels, [2]string{strconv.FormatInt(timestamp.UnixNano(), 10), string(line)})
}

func (p *Pusher) flush() {
	if p.pending.size == 0 {
		return
	}
	if err := p.send(p.pending.request()); err != nil {
		p.logger.Error("failed to send logs", "error", err)
	}
	p.pending = newBatch()
}

func (p *Pusher) send(request pushRequest) error {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)

	if err := json.NewEncoder(gz).Encode(request); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	// not bound to p.ctx, the final flush runs after it is cancelled
	req, err := http.NewRequest(http.MethodPost, p.config.Url, buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")

	if p.config.TenantKey != "" {
		req.Header.Set(p.config.TenantKey, p.config.TenantValue)
	}
	if p.config.Username != "" && p.config.Password != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected response from loki: %s, body: %s", resp.Status, string(body))
	}

	return nil
}
