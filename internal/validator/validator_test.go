package validator

import (
	"testing"

	govalidator "github.com/go-playground/validator/v10"
)

type tagged struct {
	Difficulty string `json:"difficulty" validate:"required,tier"`
	Kind       string `json:"kind" validate:"required,question_kind"`
	EventType  string `json:"event_type" validate:"required,event_type"`
}

func TestCustomTags(t *testing.T) {
	v := govalidator.New()
	if err := Register(v); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name       string
		in         tagged
		wantFields []string
	}{
		{"all valid", tagged{"hard", "short_answer", "tab_switch"}, nil},
		{"bad tier", tagged{"expert", "fill_blank", "copy_paste"}, []string{"difficulty"}},
		{"bad kind and event", tagged{"easy", "essay", "screen_share"}, []string{"kind", "event_type"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.in)
			if len(tt.wantFields) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			fields := TranslateErrors(err)
			for _, f := range tt.wantFields {
				if fields[f] == "" {
					t.Errorf("missing message for %q in %v", f, fields)
				}
			}
		})
	}
}
