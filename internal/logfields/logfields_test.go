package logfields

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Namespace", KeyNamespace, "game", Namespace("game")},
		{"Metric", KeyMetric, "game_players", Metric("game_players")},
		{"MetricType", KeyMetricType, "gauge", MetricType("gauge")},
		{"Publisher", KeyPublisher, "prometheus", Publisher("prometheus")},
		{"Kind", KeyKind, "influx", Kind("influx")},
		{"TaskID", KeyTaskID, "t-1", TaskID("t-1")},
		{"Path", KeyPath, "/etc/metricbus.yaml", Path("/etc/metricbus.yaml")},
		{"Addr", KeyAddr, ":9464", Addr(":9464")},
		{"Method", KeyMethod, "POST", Method("POST")},
		{"UserAgent", KeyUserAgent, "curl/8", UserAgent("curl/8")},
		{"RemoteAddr", KeyRemoteAddr, "127.0.0.1:5000", RemoteAddr("127.0.0.1:5000")},
	}
	for _, c := range cases {
		if c.attr.Key != c.attrKey {
			t.Fatalf("%s key mismatch: got %s want %s", c.name, c.attr.Key, c.attrKey)
		}
		if c.attr.Value.String() != c.attrVal {
			t.Fatalf("%s value mismatch: got %s want %s", c.name, c.attr.Value.String(), c.attrVal)
		}
	}
}

func TestNumericHelpers(t *testing.T) {
	if a := Delay(1500 * time.Millisecond); a.Key != KeyDelayMS || a.Value.Int64() != 1500 {
		t.Fatalf("unexpected delay attr %v", a)
	}
	if a := Fields(3); a.Key != KeyFields || a.Value.Int64() != 3 {
		t.Fatalf("unexpected fields attr %v", a)
	}
	if a := QueueLength(7); a.Value.Int64() != 7 {
		t.Fatalf("unexpected queue attr %v", a)
	}
}

func TestErrorHelper(t *testing.T) {
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should render empty, got %q", a.Value.String())
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("unexpected error value %q", a.Value.String())
	}
}
