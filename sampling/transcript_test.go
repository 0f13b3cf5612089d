package sampling

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mfaircloth/toolcycle/completion"
)

func TestTranscriptAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	transcript, err := NewTranscript(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := transcript.Append(completion.UserMessage("What is 2+2?")); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := transcript.Append(completion.AssistantMessage("4")); err != nil {
		t.Fatalf("append: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open transcript: %v", err)
	}
	defer f.Close()

	var messages []completion.Message
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var msg completion.Message
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			t.Fatalf("parse line: %v", err)
		}
		messages = append(messages, msg)
	}
	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].Role != completion.RoleUser || messages[0].TextContent() != "What is 2+2?" {
		t.Errorf("unexpected first message: %+v", messages[0])
	}
	if messages[1].Role != completion.RoleAssistant || messages[1].TextContent() != "4" {
		t.Errorf("unexpected second message: %+v", messages[1])
	}
}

func TestTranscriptConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	transcript, err := NewTranscript(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := transcript.Append(completion.UserMessage("msg")); err != nil {
				t.Errorf("append: %v", err)
			}
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	lines := 0
	for _, b := range data {
		if b == '\n' {
			lines++
		}
	}
	if lines != 10 {
		t.Errorf("expected 10 intact lines, got %d", lines)
	}
}

func TestNewTranscriptRequiresPath(t *testing.T) {
	if _, err := NewTranscript(""); err == nil {
		t.Error("expected error for empty path")
	}
}
