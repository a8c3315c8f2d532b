package services

import (
	"context"
	"errors"
	"sync"

	"github.com/stretchr/testify/mock"
	"google.golang.org/genai"
)

type MockContentGenerator struct {
	mock.Mock
}

func (m *MockContentGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	args := m.Called(ctx, model, contents, config)
	resp, _ := args.Get(0).(*genai.GenerateContentResponse)
	return resp, args.Error(1)
}

type MockModelGateway struct {
	mock.Mock
}

func (m *MockModelGateway) Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*GenerationResult)
	return result, args.Error(1)
}

// memoryKV is an in-process KVStore.
type memoryKV struct {
	mu      sync.Mutex
	values  map[string]string
	failSet bool
	sets    int
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: map[string]string{}}
}

func (kv *memoryKV) Get(key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.values[key]
	return v, ok, nil
}

func (kv *memoryKV) Set(key, value string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.failSet {
		return errors.New("quota exceeded")
	}
	kv.sets++
	kv.values[key] = value
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ConversationEvent
}

func (p *recordingPublisher) Publish(topic string, msg interface{}) {
	if topic != ConversationTopic {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, msg.(ConversationEvent))
}

func (p *recordingPublisher) ofType(t EventType) []ConversationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []ConversationEvent
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
