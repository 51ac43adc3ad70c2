package cloudfunc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
)

// MockProcessor is a test double for Processor
type MockProcessor struct {
	payloads []string
	err      error
}

func (m *MockProcessor) Process(ctx context.Context, payload []byte) error {
	m.payloads = append(m.payloads, string(payload))
	return m.err
}

func event(t *testing.T, ev Event) []byte {
	t.Helper()
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return b
}

const update = `{"update_id":1,"message":{"message_id":2,"chat":{"id":3},"text":"/start"}}`

func TestHandle(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{name: "plain body", ev: Event{HTTPMethod: "POST", Body: update}},
		{name: "base64 body", ev: Event{HTTPMethod: "POST", Body: base64.StdEncoding.EncodeToString([]byte(update)), IsBase64Encoded: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &MockProcessor{}
			f := New(proc, zaptest.NewLogger(t))

			resp, err := f.Handle(context.Background(), event(t, tt.ev))
			if err != nil {
				t.Fatalf("Handle() unexpected error: %v", err)
			}
			if resp.StatusCode != 200 || resp.Body != "" {
				t.Errorf("response = %+v, want 200 with empty body", resp)
			}
			if len(proc.payloads) != 1 || proc.payloads[0] != update {
				t.Errorf("payloads = %q, want decoded update", proc.payloads)
			}
		})
	}
}

func TestHandle_Errors(t *testing.T) {
	boom := errors.New("weather api down")

	tests := []struct {
		name    string
		event   []byte
		procErr error
		wantIs  error
	}{
		{name: "malformed event", event: []byte("not json")},
		{name: "bad base64", event: event(t, Event{Body: "%%%", IsBase64Encoded: true})},
		{name: "processing failed", event: event(t, Event{Body: update}), procErr: boom, wantIs: boom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(&MockProcessor{err: tt.procErr}, nil)

			resp, err := f.Handle(context.Background(), tt.event)
			if err == nil {
				t.Fatal("Handle() should return error")
			}
			if resp != nil {
				t.Errorf("response = %+v, want nil", resp)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
		})
	}
}

func TestResponse_JSON(t *testing.T) {
	b, err := json.Marshal(Response{StatusCode: 200})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"statusCode":200,"body":""}` {
		t.Errorf("json = %s", b)
	}
}
