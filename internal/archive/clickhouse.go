// Package archive appends every accepted activity event to a flat ClickHouse
// table. The table is the input for offline batch analytics (cohorts,
// retention, growth modeling) that the online engine deliberately does not
// compute. Writes are best-effort: the aggregator logs and carries on when
// an insert fails.
package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Row is one archived activity event. Kind-specific fields are left empty
// for the kinds that do not carry them.
type Row struct {
	EventType        string
	UserAddress      string
	TxHash           string
	Protocol         string
	Action           string
	SourceChain      string
	DestinationChain string
	Chain            string
	Market           string
	Vault            string
	AmountIn         string
	AmountOut        string
	Amount           string
	EventTime        time.Time
}

// Writer is the raw-event archive.
type Writer interface {
	Insert(ctx context.Context, row *Row) error
	Ping(ctx context.Context) error
	Close() error
}

// ClickHouseArchive implements Writer on a ClickHouse connection.
type ClickHouseArchive struct {
	conn driver.Conn
}

// Config carries ClickHouse connection settings.
type Config struct {
	Addr     string
	Database string
	Username string
	Password string
}

func NewClickHouseArchive(ctx context.Context, cfg Config) (*ClickHouseArchive, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	a := &ClickHouseArchive{conn: conn}
	if err := a.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *ClickHouseArchive) ensureSchema(ctx context.Context) error {
	ddl := `
		CREATE TABLE IF NOT EXISTS user_activity_events (
			event_type        LowCardinality(String),
			user_address      String,
			tx_hash           String,
			protocol          LowCardinality(String),
			action            LowCardinality(String),
			source_chain      LowCardinality(String),
			destination_chain LowCardinality(String),
			chain             LowCardinality(String),
			market            LowCardinality(String),
			vault             LowCardinality(String),
			amount_in         String,
			amount_out        String,
			amount            String,
			event_time        DateTime('UTC')
		) ENGINE = MergeTree()
		ORDER BY (event_type, event_time)
	`
	if err := a.conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create archive table: %w", err)
	}
	return nil
}

func (a *ClickHouseArchive) Insert(ctx context.Context, row *Row) error {
	query := `
		INSERT INTO user_activity_events (
			event_type, user_address, tx_hash, protocol, action,
			source_chain, destination_chain, chain, market, vault,
			amount_in, amount_out, amount, event_time
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := a.conn.Exec(ctx, query,
		row.EventType,
		row.UserAddress,
		row.TxHash,
		row.Protocol,
		row.Action,
		row.SourceChain,
		row.DestinationChain,
		row.Chain,
		row.Market,
		row.Vault,
		row.AmountIn,
		row.AmountOut,
		row.Amount,
		row.EventTime,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity event: %w", err)
	}
	return nil
}

func (a *ClickHouseArchive) Ping(ctx context.Context) error {
	return a.conn.Ping(ctx)
}

func (a *ClickHouseArchive) Close() error {
	return a.conn.Close()
}
