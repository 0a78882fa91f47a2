package s3blob

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

type memBlobs struct {
	objects map[string][]byte
	puts    []domain.BlobObject
}

func (m *memBlobs) Put(_ context.Context, obj domain.BlobObject) error {
	b, err := io.ReadAll(obj.Body)
	if err != nil {
		return err
	}
	m.objects[obj.Path] = b
	m.puts = append(m.puts, obj)
	return nil
}

func (m *memBlobs) Get(_ context.Context, path string) (io.ReadCloser, error) {
	b, ok := m.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *memBlobs) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for k, v := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, domain.BlobInfo{Path: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func TestArchivePath(t *testing.T) {
	at := time.Date(2025, 1, 31, 23, 59, 58, 0, time.UTC)
	if got := ArchivePath("trades", at); got != "trades/2025/01/31/235958.csv" {
		t.Errorf("ArchivePath = %q", got)
	}
}

func TestTradeArchiveWriteRead(t *testing.T) {
	blobs := &memBlobs{objects: map[string][]byte{}}
	a := NewTradeArchive(blobs, blobs, "/trades/")
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	in := []domain.Trade{
		{
			ID: "w-1", Wallet: "0xw", Market: `Will "X", win?`, AssetID: "tok",
			Side: domain.SideBuy, Outcome: domain.OutcomeNo, OutcomeInferred: true,
			Size: 12.5, Price: 0.42, Amount: 5, TimestampSec: 1_740_830_400,
			Category: domain.CategoryPolitics, Tags: []string{"Politics", "US"},
		},
		{ID: "w-2", Wallet: "0xw", Market: "m", Side: domain.SideSell, Outcome: domain.OutcomeYes, Size: 1, Price: 1, Amount: 1, TimestampSec: 1},
	}

	path, err := a.Write(ctx, in, at)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if path != "trades/2025/03/01/120000.csv" {
		t.Errorf("unexpected path %q", path)
	}
	put := blobs.puts[0]
	if put.ContentType != "text/csv" || put.Size != int64(len(blobs.objects[path])) {
		t.Errorf("upload content type %q size %d", put.ContentType, put.Size)
	}
	if put.Metadata["trade-count"] != "2" || put.Metadata["first-ts"] != "1" || put.Metadata["last-ts"] != "1740830400" {
		t.Errorf("archive metadata = %v", put.Metadata)
	}

	listed, err := a.List(ctx, at)
	if err != nil || len(listed) != 1 {
		t.Fatalf("List: %v %v", listed, err)
	}

	out, err := a.Read(ctx, path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(out))
	}
	got := out[0]
	if got.Market != in[0].Market || got.Price != 0.42 || !got.OutcomeInferred || len(got.Tags) != 2 {
		t.Errorf("first trade mismatch: %+v", got)
	}
	if out[1].Tags != nil {
		t.Errorf("expected nil tags, got %v", out[1].Tags)
	}

	if p, err := a.Write(ctx, nil, at); err != nil || p != "" {
		t.Errorf("empty batch should be a no-op, got %q %v", p, err)
	}
}

func TestNormaliseEndpoint(t *testing.T) {
	if got := normaliseEndpoint("s3.example.com", false); got != "http://s3.example.com" {
		t.Errorf("got %q", got)
	}
	if got := normaliseEndpoint("https://s3.example.com", false); got != "https://s3.example.com" {
		t.Errorf("got %q", got)
	}
}
