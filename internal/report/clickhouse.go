package report

import (
	"Go2NetEntropy/internal/config"
	"Go2NetEntropy/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"
)

const createSymbolsTableStatement = `
CREATE TABLE IF NOT EXISTS entropy_symbols (
    Timestamp   DateTime,
    Experiment  String,
    User        String,
    Name        String,
    Symbol      String,
    Direction   LowCardinality(String),
    Protocol    LowCardinality(String),
    Count       UInt64,
    Probability Float64,
    Information Float64
) ENGINE = MergeTree()
ORDER BY (Experiment, Timestamp);
`

const createSeriesTableStatement = `
CREATE TABLE IF NOT EXISTS entropy_series (
    Timestamp  DateTime,
    Experiment String,
    N          UInt64,
    H          Float64
) ENGINE = MergeTree()
ORDER BY (Experiment, Timestamp, N);
`

func init() {
	RegisterWriter("clickhouse", func(cfg *config.Config) (model.Writer, error) {
		if !cfg.Report.ClickHouse.Enabled {
			return nil, nil
		}
		return NewClickHouseSink(cfg.Report.ClickHouse)
	})
}

// ClickHouseSink implements model.Writer for ClickHouse. Each write inserts
// the summary rows and the whole entropy series of one experiment.
type ClickHouseSink struct {
	conn driver.Conn
	now  func() time.Time
}

// NewClickHouseSink connects to ClickHouse and ensures the tables exist.
func NewClickHouseSink(cfg config.ClickHouseConfig) (*ClickHouseSink, error) {
	conn, err := connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to clickhouse: %w", err)
	}

	for _, stmt := range []string{createSymbolsTableStatement, createSeriesTableStatement} {
		if err := conn.Exec(context.Background(), stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	logrus.Info("Successfully connected to ClickHouse and ensured tables exist.")

	return &ClickHouseSink{conn: conn, now: time.Now}, nil
}

func connect(cfg config.ClickHouseConfig) (driver.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping clickhouse: %w", err)
	}
	return conn, nil
}

func (s *ClickHouseSink) Name() string { return "clickhouse" }

// Write implements model.Writer.
func (s *ClickHouseSink) Write(ctx context.Context, result model.Result) error {
	ts := s.now().UTC().Truncate(time.Second)
	key := result.ID.Key()

	rows := result.Summary.Rows
	err := s.insert(ctx, "INSERT INTO entropy_symbols", len(rows), func(batch driver.Batch, i int) error {
		row := rows[i]
		return batch.Append(
			ts,
			key,
			result.ID.User,
			result.ID.Name,
			row.Symbol.String(),
			row.Symbol.Direction.String(),
			row.Symbol.Protocol,
			uint64(row.Count),
			row.Probability,
			row.Information,
		)
	})
	if err != nil {
		return err
	}

	series := result.Running.Rows
	err = s.insert(ctx, "INSERT INTO entropy_series", len(series), func(batch driver.Batch, i int) error {
		return batch.Append(ts, key, uint64(i+1), series[i].Entropy)
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"experiment": key,
		"symbols":    len(result.Summary.Rows),
		"series":     result.Running.Len(),
	}).Info("Wrote experiment to ClickHouse")
	return nil
}

// insert appends n rows to one batch and sends it. Nothing is sent for n == 0.
func (s *ClickHouseSink) insert(ctx context.Context, query string, n int, appendRow func(batch driver.Batch, i int) error) error {
	if n == 0 {
		return nil
	}
	batch, err := s.conn.PrepareBatch(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := appendRow(batch, i); err != nil {
			batch.Abort()
			return fmt.Errorf("failed to append row to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// Close releases the connection.
func (s *ClickHouseSink) Close() error {
	return s.conn.Close()
}
