package mjpeg

import "testing"

func TestDecodePart(t *testing.T) {
	tests := []struct {
		name   string
		part   string
		want   string
		wantOK bool
	}{
		{"headers and payload", "Content-Type: image/jpeg\r\n\r\n<payload>", "<payload>", true},
		{"leading line break", "\r\nContent-Type: image/jpeg\r\nContent-Length: 4\r\n\r\nJPEG", "JPEG", true},
		{"payload keeps later separators", "H: v\r\n\r\nab\r\n\r\ncd", "ab\r\n\r\ncd", true},
		{"no separator", "Content-Type: image/jpeg\r\n<payload>", "", false},
		{"empty payload", "Content-Type: image/jpeg\r\n\r\n", "", false},
		{"empty part", "", "", false},
		{"bare LF separator is not accepted", "Content-Type: image/jpeg\n\n<payload>", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodePart([]byte(tt.part))
			if ok != tt.wantOK {
				t.Fatalf("DecodePart ok = %v, want %v", ok, tt.wantOK)
			}
			if string(got) != tt.want {
				t.Errorf("DecodePart payload = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPartHeader(t *testing.T) {
	h := PartHeader([]byte("\r\nContent-Type: image/jpeg\r\nContent-Length: 4\r\n\r\nJPEG"))
	if h == nil {
		t.Fatal("PartHeader returned nil")
	}
	if got := h.Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", got)
	}
	if got := h.Get("Content-Length"); got != "4" {
		t.Errorf("Content-Length = %q, want 4", got)
	}
}

func TestPartHeader_NoHeaders(t *testing.T) {
	h := PartHeader([]byte("\r\n\r\nJPEG"))
	if h == nil {
		t.Fatal("PartHeader returned nil for a headerless part")
	}
	if len(h) != 0 {
		t.Errorf("expected no headers, got %v", h)
	}
}

func TestPartHeader_Incomplete(t *testing.T) {
	if h := PartHeader([]byte("Content-Type: image/jpeg\r\n")); h != nil {
		t.Errorf("expected nil for incomplete header block, got %v", h)
	}
}
