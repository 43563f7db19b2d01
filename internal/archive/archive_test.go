package archive

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/skyfence/scenelink/pkg/config"
	"github.com/skyfence/scenelink/pkg/scene"
)

// The archive plugs straight into the adaptor as its storage sink.
var _ scene.TrackSink = (*DB)(nil)

func TestConnectionString(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		Username: "scenelink",
		Password: "s3cret",
		Database: "airfield",
		SSLMode:  "require",
	}
	got := ConnectionString(cfg)
	want := "host=db.internal port=5433 user=scenelink password=s3cret dbname=airfield sslmode=require"
	if got != want {
		t.Errorf("ConnectionString = %q, want %q", got, want)
	}
}

func TestSchemaEmbedded(t *testing.T) {
	data, err := schemaSQL.ReadFile("schema.sql")
	if err != nil {
		t.Fatalf("schema not embedded: %v", err)
	}
	ddl := string(data)
	for _, table := range []string{"track_samples", "airplane_samples"} {
		if !strings.Contains(ddl, table) {
			t.Errorf("schema missing table %s", table)
		}
	}
	// Idempotent startup: InitSchema runs every boot.
	if !strings.Contains(ddl, "IF NOT EXISTS") {
		t.Error("schema must be re-runnable")
	}
}

// TestConnectUnreachable verifies connect failures surface as errors
// instead of deferring to first use.
func TestConnectUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping connection attempt in short mode")
	}
	cfg := config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     1, // nothing listens here
		Username: "scenelink",
		Database: "scenelink",
		SSLMode:  "disable",
	}
	db, err := Connect(cfg)
	if err == nil {
		db.Close()
		t.Fatal("expected connection error for unreachable host")
	}
}

func TestSaveTrackBatchEmptyIsNoop(t *testing.T) {
	// A nil receiver is never dereferenced for an empty batch, so the
	// call must succeed without a live connection.
	var db DB
	if err := db.SaveTrackBatch(context.Background(), nil); err != nil {
		t.Errorf("empty batch = %v, want nil", err)
	}
}

func TestNullString(t *testing.T) {
	if ns := nullString(""); ns.Valid {
		t.Error("empty string must map to NULL")
	}
	if ns := nullString("hostile"); !ns.Valid || ns.String != "hostile" {
		t.Errorf("nullString(hostile) = %+v", ns)
	}
}

func TestCleanupCutoffIsInThePast(t *testing.T) {
	maxAge := 24 * time.Hour
	cutoff := time.Now().UTC().Add(-maxAge)
	if cutoff.After(time.Now().UTC()) {
		t.Error("cutoff should be in the past")
	}
}
