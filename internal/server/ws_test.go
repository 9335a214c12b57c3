package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/p-n-ai/educonnect/internal/ai"
	"github.com/p-n-ai/educonnect/internal/course"
)

// streamGeneration sends body over a fresh socket and collects messages
// until the final course or error.
func streamGeneration(t *testing.T, env *testEnv, body any) []wsMessage {
	t.Helper()
	srv := httptest.NewServer(env.handler)
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/courses/generate"
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{userHeader: []string{"u1"}},
	})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.CloseNow()

	if err := wsjson.Write(ctx, conn, body); err != nil {
		t.Fatalf("write: %v", err)
	}

	var msgs []wsMessage
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			t.Fatalf("read after %d messages: %v", len(msgs), err)
		}
		msgs = append(msgs, msg)
		if msg.Type != msgProgress {
			return msgs
		}
	}
}

func stages(msgs []wsMessage) []course.Stage {
	var out []course.Stage
	for _, m := range msgs {
		if m.Type == msgProgress {
			out = append(out, m.Stage)
		}
	}
	return out
}

func TestGenerateWS_StreamsProgressThenCourse(t *testing.T) {
	env := newTestEnv(t, course.GeneratorConfig{})

	msgs := streamGeneration(t, env, map[string]any{
		"title":        "Intro to Testing",
		"syllabus":     "Unit tests",
		"durationDays": 1,
	})

	want := []course.Stage{
		course.StagePrompting,
		course.StageGenerating,
		course.StageParsing,
		course.StageNormalizing,
		course.StagePersisting,
		course.StageDone,
	}
	if got := stages(msgs); !slices.Equal(got, want) {
		t.Errorf("stages = %v, want %v", got, want)
	}

	last := msgs[len(msgs)-1]
	if last.Type != msgCourse || last.Course == nil {
		t.Fatalf("final message = %+v, want course", last)
	}
	if last.Course.OwnerID != "u1" || len(last.Course.TopicDocuments) != 2 {
		t.Errorf("course = %+v", last.Course)
	}

	if _, err := env.store.Get(context.Background(), last.Course.ID); err != nil {
		t.Errorf("streamed course was not stored: %v", err)
	}
}

func TestGenerateWS_Errors(t *testing.T) {
	tests := []struct {
		name       string
		response   string
		body       any
		wantStatus int
		wantStages int
	}{
		{
			name:       "malformed model output",
			response:   "not json at all",
			body:       map[string]any{"title": "T", "syllabus": "S", "durationDays": 1},
			wantStatus: http.StatusUnprocessableEntity,
			wantStages: 3, // prompting, generating, parsing
		},
		{
			name:       "invalid request",
			response:   validModelJSON,
			body:       map[string]any{"title": "", "syllabus": "S", "durationDays": 1},
			wantStatus: http.StatusBadRequest,
			wantStages: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := ai.NewMockProvider(tt.response)
			env := newTestEnv(t, course.GeneratorConfig{AI: mock})

			msgs := streamGeneration(t, env, tt.body)
			last := msgs[len(msgs)-1]
			if last.Type != msgError || last.Status != tt.wantStatus || last.Error == "" {
				t.Errorf("final message = %+v, want error %d", last, tt.wantStatus)
			}
			if n := len(stages(msgs)); n != tt.wantStages {
				t.Errorf("stages = %d, want %d", n, tt.wantStages)
			}
		})
	}
}
