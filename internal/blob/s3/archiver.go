package s3blob

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/emmatheo/polyscop/internal/domain"
)

const contentTypeCSV = "text/csv"

// Object metadata keys set on every archive.
const (
	metaTradeCount = "trade-count"
	metaFirstTS    = "first-ts"
	metaLastTS     = "last-ts"
)

var csvHeader = []string{
	"id", "wallet", "market", "asset_id", "condition_id", "side", "outcome",
	"outcome_inferred", "size", "price", "amount", "timestamp", "category",
	"tx_hash", "tags",
}

// TradeArchive writes trade batches to the bucket as CSV files partitioned
// by flush time, and reads them back for backfills.
type TradeArchive struct {
	writer domain.BlobWriter
	reader domain.BlobReader
	prefix string
}

// NewTradeArchive creates a TradeArchive rooted at prefix (e.g. "trades").
// reader may be nil when only writing.
func NewTradeArchive(writer domain.BlobWriter, reader domain.BlobReader, prefix string) *TradeArchive {
	return &TradeArchive{writer: writer, reader: reader, prefix: strings.Trim(prefix, "/")}
}

// Write uploads trades as one CSV object and returns its key. An empty batch
// writes nothing.
func (a *TradeArchive) Write(ctx context.Context, trades []domain.Trade, at time.Time) (string, error) {
	if len(trades) == 0 {
		return "", nil
	}
	buf, err := EncodeCSV(trades)
	if err != nil {
		return "", fmt.Errorf("s3blob: archive encode: %w", err)
	}

	path := ArchivePath(a.prefix, at)
	err = a.writer.Put(ctx, domain.BlobObject{
		Path:        path,
		Body:        bytes.NewReader(buf),
		Size:        int64(len(buf)),
		ContentType: contentTypeCSV,
		Metadata:    archiveMetadata(trades),
	})
	if err != nil {
		return "", fmt.Errorf("s3blob: archive upload %s: %w", path, err)
	}
	return path, nil
}

// archiveMetadata records the row count and the trade time span of a batch.
func archiveMetadata(trades []domain.Trade) map[string]string {
	first, last := trades[0].TimestampSec, trades[0].TimestampSec
	for _, t := range trades[1:] {
		first = min(first, t.TimestampSec)
		last = max(last, t.TimestampSec)
	}
	return map[string]string{
		metaTradeCount: strconv.Itoa(len(trades)),
		metaFirstTS:    strconv.FormatInt(first, 10),
		metaLastTS:     strconv.FormatInt(last, 10),
	}
}

// List returns the archive keys under the prefix, optionally narrowed to a
// day, in key order.
func (a *TradeArchive) List(ctx context.Context, day time.Time) ([]domain.BlobInfo, error) {
	if a.reader == nil {
		return nil, fmt.Errorf("s3blob: archive list: no reader configured")
	}
	prefix := a.prefix + "/"
	if !day.IsZero() {
		prefix += day.UTC().Format("2006/01/02") + "/"
	}
	return a.reader.List(ctx, prefix)
}

// Read downloads and decodes one archive object.
func (a *TradeArchive) Read(ctx context.Context, path string) ([]domain.Trade, error) {
	if a.reader == nil {
		return nil, fmt.Errorf("s3blob: archive read: no reader configured")
	}
	body, err := a.reader.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	trades, err := DecodeCSV(body)
	if err != nil {
		return nil, fmt.Errorf("s3blob: archive decode %s: %w", path, err)
	}
	return trades, nil
}

// ArchivePath builds the key for an archive written at t:
//
//	trades/2025/01/31/235959.csv
func ArchivePath(prefix string, t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s/%s/%s.csv", prefix, t.Format("2006/01/02"), t.Format("150405"))
}

// EncodeCSV serialises trades with a header row. Tags are joined with "|".
func EncodeCSV(trades []domain.Trade) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for i, t := range trades {
		rec := []string{
			t.ID,
			t.Wallet,
			t.Market,
			t.AssetID,
			t.ConditionID,
			string(t.Side),
			string(t.Outcome),
			strconv.FormatBool(t.OutcomeInferred),
			strconv.FormatFloat(t.Size, 'f', -1, 64),
			strconv.FormatFloat(t.Price, 'f', -1, 64),
			strconv.FormatFloat(t.Amount, 'f', -1, 64),
			strconv.FormatInt(t.TimestampSec, 10),
			string(t.Category),
			t.TxHash,
			strings.Join(t.Tags, "|"),
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("csv encode record %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeCSV parses the output of EncodeCSV.
func DecodeCSV(r io.Reader) ([]domain.Trade, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv header: %w", err)
	}
	if header[0] != csvHeader[0] {
		return nil, fmt.Errorf("csv header: unexpected first column %q", header[0])
	}

	var trades []domain.Trade
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		t, err := decodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func decodeRecord(rec []string) (domain.Trade, error) {
	t := domain.Trade{
		ID:          rec[0],
		Wallet:      rec[1],
		Market:      rec[2],
		AssetID:     rec[3],
		ConditionID: rec[4],
		Side:        domain.Side(rec[5]),
		Outcome:     domain.Outcome(rec[6]),
		Category:    domain.Category(rec[12]),
		TxHash:      rec[13],
	}
	var err error
	if t.OutcomeInferred, err = strconv.ParseBool(rec[7]); err != nil {
		return t, fmt.Errorf("outcome_inferred: %w", err)
	}
	if t.Size, err = strconv.ParseFloat(rec[8], 64); err != nil {
		return t, fmt.Errorf("size: %w", err)
	}
	if t.Price, err = strconv.ParseFloat(rec[9], 64); err != nil {
		return t, fmt.Errorf("price: %w", err)
	}
	if t.Amount, err = strconv.ParseFloat(rec[10], 64); err != nil {
		return t, fmt.Errorf("amount: %w", err)
	}
	if t.TimestampSec, err = strconv.ParseInt(rec[11], 10, 64); err != nil {
		return t, fmt.Errorf("timestamp: %w", err)
	}
	if rec[14] != "" {
		t.Tags = strings.Split(rec[14], "|")
	}
	return t, nil
}
