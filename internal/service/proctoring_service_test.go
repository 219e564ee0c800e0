package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-adaptive/internal/model"
)

func TestProctoringLogEvent(t *testing.T) {
	f := newFixture(t, 2, multipleChoice(model.TierMedium, "", 1))
	started := f.start(t, "")
	svc := NewProctoringService(f.svc, DirectSink{Log: f.events}, f.monitor, zerolog.Nop())
	ctx := context.Background()

	confidence := func(v float64) *float64 { return &v }
	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		req          model.LogProctoringEventRequest
		wantAccepted bool
	}{
		{"valid", model.LogProctoringEventRequest{EventType: "tab_switch", Confidence: confidence(0.9), Timestamp: ts}, true},
		{"valid with details", model.LogProctoringEventRequest{EventType: "copy_paste", Confidence: confidence(1), Timestamp: ts, Details: json.RawMessage(`{"chars":42}`)}, true},
		{"unknown type", model.LogProctoringEventRequest{EventType: "screen_share", Confidence: confidence(1), Timestamp: ts}, false},
		{"confidence above one", model.LogProctoringEventRequest{EventType: "tab_switch", Confidence: confidence(1.2), Timestamp: ts}, false},
		{"missing timestamp", model.LogProctoringEventRequest{EventType: "right_click", Confidence: confidence(1)}, false},
		{"broken details", model.LogProctoringEventRequest{EventType: "right_click", Confidence: confidence(1), Timestamp: ts, Details: json.RawMessage(`{`)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, err := svc.LogEvent(ctx, started.SessionID, student, &tt.req)
			if err != nil {
				t.Fatalf("LogEvent: %v", err)
			}
			if accepted != tt.wantAccepted {
				t.Errorf("accepted = %v, want %v", accepted, tt.wantAccepted)
			}
		})
	}

	logged, _ := f.events.ListBySession(ctx, started.SessionID)
	if len(logged) != 2 {
		t.Errorf("logged %d events, want 2", len(logged))
	}
	for _, ev := range logged {
		if ev.ReceivedAt.IsZero() {
			t.Error("event stored without receive time")
		}
	}
}

func TestProctoringLogEventOwnership(t *testing.T) {
	f := newFixture(t, 2, multipleChoice(model.TierMedium, "", 1))
	started := f.start(t, "")
	svc := NewProctoringService(f.svc, DirectSink{Log: f.events}, f.monitor, zerolog.Nop())

	c := 1.0
	req := &model.LogProctoringEventRequest{EventType: "tab_switch", Confidence: &c, Timestamp: time.Now()}
	if _, err := svc.LogEvent(context.Background(), started.SessionID, "intruder", req); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestProctoringSinkFailureSurfaces(t *testing.T) {
	f := newFixture(t, 2, multipleChoice(model.TierMedium, "", 1))
	started := f.start(t, "")
	svc := NewProctoringService(f.svc, DirectSink{Log: failingEventLog{}}, f.monitor, zerolog.Nop())

	c := 1.0
	req := &model.LogProctoringEventRequest{EventType: "tab_switch", Confidence: &c, Timestamp: time.Now()}
	accepted, err := svc.LogEvent(context.Background(), started.SessionID, student, req)
	if err == nil || accepted {
		t.Errorf("accepted = %v, err = %v; want a sink error", accepted, err)
	}

	// The exam flow is unaffected.
	f.submit(t, started.SessionID, started.FirstQuestion.ID, "4", 1)
}
