package looper

import (
	"strings"
	"testing"
	"time"
)

func TestExportJSONNullsUnsetTempo(t *testing.T) {
	doc, err := ExportJSON(UIState{
		Bloops: []BloopUIState{{Listening: true}},
	})
	if err != nil {
		t.Fatalf("ExportJSON returned error: %v", err)
	}
	if !strings.Contains(doc, `"epoch":null`) {
		t.Errorf("expected null epoch in %s", doc)
	}
	if !strings.Contains(doc, `"durationMs":null`) {
		t.Errorf("expected null durationMs in %s", doc)
	}
	if !strings.Contains(doc, `"listening":true`) {
		t.Errorf("expected bloop 0 listening=true in %s", doc)
	}
}

func TestExportJSONReportsTempoAndBloopState(t *testing.T) {
	epoch := time.UnixMilli(1_700_000_000_000)
	doc, err := ExportJSON(UIState{
		Epoch:       epoch,
		EpochSet:    true,
		Duration:    2 * time.Second,
		DurationSet: true,
		Bloops: []BloopUIState{
			{Recording: true},
			{PlayingBack: true, PlaybackActive: true},
		},
	})
	if err != nil {
		t.Fatalf("ExportJSON returned error: %v", err)
	}

	if !strings.Contains(doc, `"epoch":1700000000000`) {
		t.Errorf("expected epoch in millis in %s", doc)
	}
	if !strings.Contains(doc, `"durationMs":2000`) {
		t.Errorf("expected durationMs:2000 in %s", doc)
	}
	if !strings.Contains(doc, `"bloops":[`) {
		t.Errorf("expected a bloops array in %s", doc)
	}
	if !strings.Contains(doc, `"recording":true`) {
		t.Errorf("expected bloop 0 recording=true in %s", doc)
	}
	if !strings.Contains(doc, `"playbackActive":true`) {
		t.Errorf("expected bloop 1 playbackActive=true in %s", doc)
	}
}

func TestExportJSONEmptyBloopsOmitsBloopsKey(t *testing.T) {
	doc, err := ExportJSON(UIState{})
	if err != nil {
		t.Fatalf("ExportJSON returned error: %v", err)
	}
	if strings.Contains(doc, `"bloops":[`) {
		t.Errorf("expected no bloops key when there are no bloops, got %s", doc)
	}
}
