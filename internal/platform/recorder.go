package platform

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/donaldgifford/marketplace-sync/internal/credential"
)

// redactedParams are replaced before an entry reaches disk.
var redactedParams = map[string]struct{}{
	"access_token":  {},
	"refresh_token": {},
	"sign":          {},
	"app_secret":    {},
	"code":          {},
}

// Entry is one recorded API call.
type Entry struct {
	Platform  credential.Platform
	Endpoint  string
	Params    []Param
	Status    int
	Response  []byte
	Timestamp time.Time
}

type entryFile struct {
	Timestamp time.Time         `json:"timestamp"`
	Endpoint  string            `json:"endpoint"`
	Params    map[string]string `json:"params"`
	Status    int               `json:"status"`
	Response  json.RawMessage   `json:"response,omitempty"`
	RawBody   string            `json:"raw_body,omitempty"`
}

// Recorder writes API call entries to <dir>/<platform>/<endpoint>_<ts>.json
// from a background goroutine. Record never blocks: when the buffer is full
// the entry is dropped. A nil *Recorder records nothing.
type Recorder struct {
	dir     string
	entries chan Entry
	log     *slog.Logger
	wg      sync.WaitGroup
	once    sync.Once
	dropped atomic.Int64
}

// NewRecorder starts a Recorder with the given buffer size.
func NewRecorder(dir string, buffer int, log *slog.Logger) *Recorder {
	if buffer <= 0 {
		buffer = 64
	}
	r := &Recorder{
		dir:     dir,
		entries: make(chan Entry, buffer),
		log:     log,
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record queues e for writing.
func (r *Recorder) Record(e Entry) {
	if r == nil {
		return
	}
	select {
	case r.entries <- e:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many entries were discarded because the buffer was full.
func (r *Recorder) Dropped() int64 {
	if r == nil {
		return 0
	}
	return r.dropped.Load()
}

// Close flushes queued entries and stops the writer.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.once.Do(func() {
		close(r.entries)
		r.wg.Wait()
	})
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for e := range r.entries {
		if err := r.write(e); err != nil {
			r.log.Warn("recording api call failed", "platform", e.Platform, "endpoint", e.Endpoint, "error", err)
		}
	}
}

func (r *Recorder) write(e Entry) error {
	dir := filepath.Join(r.dir, string(e.Platform))
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}

	params := make(map[string]string, len(e.Params))
	for _, p := range e.Params {
		if _, secret := redactedParams[p.Key]; secret {
			params[p.Key] = "[REDACTED]"
			continue
		}
		params[p.Key] = p.Value
	}

	doc := entryFile{
		Timestamp: e.Timestamp,
		Endpoint:  e.Endpoint,
		Params:    params,
		Status:    e.Status,
	}
	if json.Valid(e.Response) {
		doc.Response = e.Response
	} else {
		doc.RawBody = string(e.Response)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", endpointSlug(e.Endpoint), e.Timestamp.Format("20060102_150405.000000000"))
	return os.WriteFile(filepath.Join(dir, name), data, 0o600)
}

func endpointSlug(endpoint string) string {
	slug := strings.Trim(endpoint, "/")
	slug = strings.NewReplacer("/", "_", ".", "_").Replace(slug)
	if slug == "" {
		return "root"
	}
	return slug
}
