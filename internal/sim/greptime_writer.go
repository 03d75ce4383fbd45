package sim

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"guidanceops-sim/internal/logging"
	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

const defaultGreptimePort = 4001

// greptimeClient is the subset of the ingester client the writer uses.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes telemetry and path events to GreptimeDB via the
// ingester client. Tables are created on first write.
type GreptimeDBWriter struct {
	client     greptimeClient
	teleTable  string
	eventTable string
	log        *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port") and
// writes into database.
func NewGreptimeDBWriter(endpoint, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptimedb client: %w", err)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &GreptimeDBWriter{
		client:     client,
		teleTable:  telemetry.TelemetryTableName,
		eventTable: path.EventTableName,
		log:        log,
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// no port given
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid greptimedb port %q: %w", portStr, err)
	}
	return host, port, nil
}

// Write inserts a single telemetry row.
func (w *GreptimeDBWriter) Write(row telemetry.TelemetryRow) error {
	return w.WriteBatch([]telemetry.TelemetryRow{row})
}

// WriteBatch inserts multiple telemetry rows.
func (w *GreptimeDBWriter) WriteBatch(rows []telemetry.TelemetryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := telemetryTable(w.teleTable)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(
			r.VehicleID,
			r.X, r.Y, r.Z,
			r.Heading,
			r.Velocity,
			string(r.Gear),
			string(r.AutonomyState),
			string(r.StuckReason),
			r.BatteryLevel,
			r.PathID,
			r.Source,
			r.Timestamp,
		); err != nil {
			return fmt.Errorf("add telemetry row: %w", err)
		}
	}
	return w.write(tbl, len(rows))
}

// WritePathEvent inserts a single path event.
func (w *GreptimeDBWriter) WritePathEvent(e path.EventRow) error {
	return w.WritePathEvents([]path.EventRow{e})
}

// WritePathEvents inserts multiple path events.
func (w *GreptimeDBWriter) WritePathEvents(rows []path.EventRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := eventTable(w.eventTable)
	if err != nil {
		return err
	}
	for _, e := range rows {
		if err := tbl.AddRow(
			e.VehicleID,
			e.PathID,
			e.Event,
			int64(e.Points),
			e.Message,
			e.EstimatedTimeS,
			e.Timestamp,
		); err != nil {
			return fmt.Errorf("add path event row: %w", err)
		}
	}
	return w.write(tbl, len(rows))
}

func (w *GreptimeDBWriter) write(tbl *table.Table, n int) error {
	if _, err := w.client.Write(context.Background(), tbl); err != nil {
		w.log.Error("greptimedb write failed", "rows", n, "error", err)
		return err
	}
	w.log.Debug("greptimedb write", "rows", n)
	return nil
}

type column struct {
	name string
	typ  types.ColumnType
	tag  bool
}

func buildTable(name string, cols []column) (*table.Table, error) {
	tbl, err := table.New(name)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	for _, c := range cols {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", name, c.name, err)
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, fmt.Errorf("table %s time index: %w", name, err)
	}
	return tbl, nil
}

func telemetryTable(name string) (*table.Table, error) {
	return buildTable(name, []column{
		{"vehicle_id", types.STRING, true},
		{"x", types.FLOAT64, false},
		{"y", types.FLOAT64, false},
		{"z", types.FLOAT64, false},
		{"heading", types.FLOAT64, false},
		{"velocity", types.FLOAT64, false},
		{"gear", types.STRING, false},
		{"autonomy_state", types.STRING, false},
		{"stuck_reason", types.STRING, false},
		{"battery_level", types.FLOAT64, false},
		{"path_id", types.STRING, false},
		{"source", types.STRING, false},
	})
}

func eventTable(name string) (*table.Table, error) {
	return buildTable(name, []column{
		{"vehicle_id", types.STRING, true},
		{"path_id", types.STRING, true},
		{"event", types.STRING, false},
		{"points", types.INT64, false},
		{"message", types.STRING, false},
		{"estimated_time_s", types.FLOAT64, false},
	})
}
