package api

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/personaverse/discovery/internal/engine"
)

func TestParseParams(t *testing.T) {
	p, err := parseParams(json.RawMessage(`{"user_id": 42, "limit": 10, "categories": ["art", "music"], "refresh": true}`))
	if err != nil {
		t.Fatalf("parseParams: %v", err)
	}

	if got := paramInt64(p, "user_id"); got != 42 {
		t.Errorf("user_id = %d, want 42", got)
	}
	if got := paramInt(p, "limit", 50); got != 10 {
		t.Errorf("limit = %d, want 10", got)
	}
	if got := paramInt(p, "missing", 50); got != 50 {
		t.Errorf("missing int = %d, want default 50", got)
	}
	if got := paramBool(p, "refresh", false); !got {
		t.Error("refresh = false, want true")
	}
	categories := paramStringSlice(p, "categories")
	if len(categories) != 2 || categories[0] != "art" || categories[1] != "music" {
		t.Errorf("categories = %v, want [art music]", categories)
	}
	if got := paramStringSlice(p, "missing"); got != nil {
		t.Errorf("missing slice = %v, want nil", got)
	}
}

func TestParseParamsEmpty(t *testing.T) {
	p, err := parseParams(nil)
	if err != nil {
		t.Fatalf("parseParams(nil): %v", err)
	}
	if got := paramString(p, "anything"); got != "" {
		t.Errorf("paramString on empty params = %q, want empty", got)
	}
}

func TestParseParamsRejectsNonObject(t *testing.T) {
	if _, err := parseParams(json.RawMessage(`[1, 2]`)); err == nil {
		t.Error("positional params should be rejected")
	}
	if _, err := parseParams(json.RawMessage(`not json`)); err == nil {
		t.Error("malformed params should be rejected")
	}
}

func TestCodeForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{engine.BadRequestf("bad timeframe"), ErrInvalidParams},
		{engine.NotFoundf("no such persona"), ErrNotFound},
		{engine.ErrForbidden, ErrForbidden},
		{engine.Internalf("db down"), ErrInternalError},
		{errors.New("unclassified"), ErrInternalError},
	}
	for _, tt := range tests {
		if got := CodeForError(tt.err); got != tt.want {
			t.Errorf("CodeForError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
