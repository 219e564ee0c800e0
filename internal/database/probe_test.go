package database

import (
	"context"
	"errors"
	"testing"
)

func TestCheckAll(t *testing.T) {
	ok := Probe{Name: "postgres", Ping: func(context.Context) error { return nil }}
	down := Probe{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }}

	tests := []struct {
		name    string
		probes  []Probe
		healthy bool
		want    map[string]string
	}{
		{"no probes", nil, true, map[string]string{}},
		{"all up", []Probe{ok}, true, map[string]string{"postgres": "ok"}},
		{"one down", []Probe{ok, down}, false, map[string]string{"postgres": "ok", "redis": "connection refused"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, healthy := CheckAll(context.Background(), tt.probes)
			if healthy != tt.healthy {
				t.Errorf("healthy = %v, want %v", healthy, tt.healthy)
			}
			if len(status) != len(tt.want) {
				t.Fatalf("status = %v, want %v", status, tt.want)
			}
			for k, v := range tt.want {
				if status[k] != v {
					t.Errorf("status[%s] = %q, want %q", k, status[k], v)
				}
			}
		})
	}
}

func TestCheckAllAppliesTimeout(t *testing.T) {
	p := Probe{Name: "slow", Ping: func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			return errors.New("no deadline")
		}
		return nil
	}}
	if status, healthy := CheckAll(context.Background(), []Probe{p}); !healthy {
		t.Errorf("status = %v", status)
	}
}
