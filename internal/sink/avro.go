package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/linkedin/goavro/v2"

	"github.com/galileosky/mercury-gateway/pkg/log"
)

// mercurySchema is a fixed Avro schema for the Mercury flat-record
// shape. There is one stable shape to archive, so this sink has no
// need to infer or reconcile schemas at runtime.
const mercurySchema = `{
  "type": "record",
  "name": "MercuryReading",
  "fields": [
    {"name": "_received_at", "type": "string"},
    {"name": "mercury_id", "type": "string"},
    {"name": "imei", "type": "string"},
    {"name": "galileosky_mercury_state", "type": "int"},
    {"name": "galileosky_mercury_f", "type": "double"},
    {"name": "galileosky_mercury_u1", "type": "double"},
    {"name": "galileosky_mercury_u2", "type": "double"},
    {"name": "galileosky_mercury_u3", "type": "double"},
    {"name": "galileosky_mercury_i1", "type": "double"},
    {"name": "galileosky_mercury_i2", "type": "double"},
    {"name": "galileosky_mercury_i3", "type": "double"},
    {"name": "galileosky_mercury_a12", "type": "double"},
    {"name": "galileosky_mercury_a23", "type": "double"},
    {"name": "galileosky_mercury_a13", "type": "double"},
    {"name": "galileosky_mercury_p1", "type": "double"},
    {"name": "galileosky_mercury_p2", "type": "double"},
    {"name": "galileosky_mercury_p3", "type": "double"},
    {"name": "galileosky_mercury_ps", "type": "double"},
    {"name": "galileosky_mercury_pa_plus", "type": ["null", "double"], "default": null},
    {"name": "galileosky_mercury_ks1", "type": "double"},
    {"name": "galileosky_mercury_ks2", "type": "double"},
    {"name": "galileosky_mercury_ks3", "type": "double"},
    {"name": "galileosky_mercury_kss", "type": "double"},
    {"name": "galileosky_mercury_kg1", "type": "double"},
    {"name": "galileosky_mercury_kg2", "type": "double"},
    {"name": "galileosky_mercury_kg3", "type": "double"}
  ]
}`

// Avro periodically batches accepted Mercury records into an Avro
// Object Container File, one file per rotation under Dir. It is the
// compact long-term archive counterpart to the human-readable JSON
// Lines stream, and only ever sees records that carry a Mercury
// reading — the generic fallback record shape has no place in a fixed
// schema.
type Avro struct {
	mu    sync.Mutex
	dir   string
	codec *goavro.Codec
	batch []map[string]any
}

// NewAvro prepares the sink's output directory and compiles the fixed
// schema. No file is created until the first Flush.
func NewAvro(dir string) (*Avro, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("avro sink: creating directory: %w", err)
	}
	codec, err := goavro.NewCodec(mercurySchema)
	if err != nil {
		return nil, fmt.Errorf("avro sink: compiling schema: %w", err)
	}
	return &Avro{dir: dir, codec: codec}, nil
}

// Save buffers record for the next Flush. Records lacking a
// mercury_id (the generic fallback shape) are silently dropped — this
// sink archives meter readings only.
func (a *Avro) Save(_ context.Context, record map[string]any) error {
	if _, ok := record["mercury_id"]; !ok {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.batch = append(a.batch, avroCoerce(record))
	return nil
}

// avroCoerce fills in the schema's declared nullable union shape for
// fields that may be absent (the energy sentinel) and drops any co-frame
// keys the fixed schema doesn't carry (inputs, thermometers, 0x45/0x46).
func avroCoerce(record map[string]any) map[string]any {
	out := make(map[string]any, 25)
	for _, k := range []string{
		"_received_at", "mercury_id", "imei",
		"galileosky_mercury_f", "galileosky_mercury_u1", "galileosky_mercury_u2", "galileosky_mercury_u3",
		"galileosky_mercury_i1", "galileosky_mercury_i2", "galileosky_mercury_i3",
		"galileosky_mercury_a12", "galileosky_mercury_a23", "galileosky_mercury_a13",
		"galileosky_mercury_p1", "galileosky_mercury_p2", "galileosky_mercury_p3", "galileosky_mercury_ps",
		"galileosky_mercury_ks1", "galileosky_mercury_ks2", "galileosky_mercury_ks3", "galileosky_mercury_kss",
		"galileosky_mercury_kg1", "galileosky_mercury_kg2", "galileosky_mercury_kg3",
	} {
		out[k] = record[k]
	}
	if state, ok := record["galileosky_mercury_state"].(uint8); ok {
		out["galileosky_mercury_state"] = int32(state)
	} else {
		out["galileosky_mercury_state"] = int32(0)
	}
	if v, ok := record["galileosky_mercury_pa_plus"].(float64); ok {
		out["galileosky_mercury_pa_plus"] = goavro.Union("double", v)
	} else {
		out["galileosky_mercury_pa_plus"] = goavro.Union("null", nil)
	}
	return out
}

// Flush writes the currently buffered records to a new OCF file
// and clears the buffer. A no-op when nothing has been buffered since
// the last flush.
func (a *Avro) Flush() error {
	a.mu.Lock()
	batch := a.batch
	a.batch = nil
	a.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	name := fmt.Sprintf("mercury_%d.avro", time.Now().UnixNano())
	f, err := os.Create(filepath.Join(a.dir, name))
	if err != nil {
		return fmt.Errorf("avro sink: creating %s: %w", name, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	writer, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Codec:           a.codec,
		CompressionName: goavro.CompressionDeflateLabel,
	})
	if err != nil {
		return fmt.Errorf("avro sink: creating OCF writer: %w", err)
	}
	if err := writer.Append(batch); err != nil {
		return fmt.Errorf("avro sink: appending batch: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("avro sink: flushing %s: %w", name, err)
	}

	log.Infof("avro sink: flushed %d records to %s", len(batch), name)
	return nil
}

// Close performs a final flush.
func (a *Avro) Close() error {
	return a.Flush()
}
