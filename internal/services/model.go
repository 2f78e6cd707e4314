package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"chatline-backend/internal/models"
)

// Fragment is one incremental piece of model output.
type Fragment struct {
	Text     string
	ToolName string
	ToolArgs string
}

// StreamHooks are the lifecycle callbacks a caller registers before
// issuing a streaming call. OnStart fires once before the first fragment,
// OnData for each fragment, then exactly one of OnFinish or OnError.
// An aborted stream (caller cancellation or wall-clock timeout) finishes
// with aborted=true rather than erroring, so partial output can be kept.
type StreamHooks struct {
	OnStart  func(model string)
	OnData   func(f Fragment)
	OnFinish func(usage *models.Usage, aborted bool)
	OnError  func(err error)
}

// ModelStreamer is the model-invocation contract the HTTP layer depends
// on; tests substitute a fake.
type ModelStreamer interface {
	StreamChat(ctx context.Context, messages []models.Message, hooks StreamHooks) error
	ModelName() string
}

// GeminiService talks to the Gemini API.
type GeminiService struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
	rateChan  chan struct{} // concurrency slots
}

func NewGeminiService(apiKey, modelName string, concurrentReqs int) (*GeminiService, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.7)
	model.SetTopP(0.95)

	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		client:    client,
		model:     model,
		modelName: modelName,
		rateChan:  rateChan,
	}, nil
}

func (s *GeminiService) Close() {
	s.client.Close()
}

func (s *GeminiService) ModelName() string {
	return s.modelName
}

// acquireRate blocks until a concurrency slot is available.
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// StreamChat streams a reply for the forwarded message sequence. The last
// message is sent as the prompt, everything before it becomes chat
// history, and system messages fold into the system instruction.
func (s *GeminiService) StreamChat(ctx context.Context, messages []models.Message, hooks StreamHooks) error {
	if len(messages) == 0 {
		return fmt.Errorf("empty message sequence")
	}
	if err := s.acquireRate(ctx); err != nil {
		return err
	}
	defer s.releaseRate()

	history, prompt, system := splitForProvider(messages)

	model := s.model
	if system != "" {
		// Clone so the shared model keeps no per-request instruction.
		m := *s.model
		m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
		model = &m
	}

	cs := model.StartChat()
	cs.History = history

	if hooks.OnStart != nil {
		hooks.OnStart(s.modelName)
	}

	var usage *models.Usage
	iter := cs.SendMessageStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// Caller abort or wall-clock expiry: aborted, not errored.
				if hooks.OnFinish != nil {
					hooks.OnFinish(usage, true)
				}
				return nil
			}
			log.Printf("GEMINI_STREAM_ERROR | model=%s error=%v", s.modelName, err)
			if hooks.OnError != nil {
				hooks.OnError(err)
			}
			return err
		}

		if resp.UsageMetadata != nil {
			usage = &models.Usage{
				PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
				CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
				TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
			}
		}

		for _, frag := range fragments(resp) {
			if hooks.OnData != nil {
				hooks.OnData(frag)
			}
		}
	}

	if hooks.OnFinish != nil {
		hooks.OnFinish(usage, false)
	}
	return nil
}

// GenerateTitle asks the model for a short chat title based on the opening
// exchange. Used by the background title worker.
func (s *GeminiService) GenerateTitle(ctx context.Context, messages []models.Message) (string, error) {
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	var sb strings.Builder
	sb.WriteString("Write a title of at most five words for this conversation. Return plain text only, no quotes:\n\n")
	for i, m := range messages {
		if i >= 4 {
			break
		}
		sb.WriteString(m.Role + ": " + m.Text() + "\n")
	}

	resp, err := s.model.GenerateContent(ctx, genai.Text(sb.String()))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	title := strings.TrimSpace(extractText(resp))
	title = strings.Trim(title, `"`)
	if title == "" {
		return "", fmt.Errorf("Gemini returned empty title")
	}
	return title, nil
}

// splitForProvider converts stored messages into provider history, the
// final prompt text, and a combined system instruction.
func splitForProvider(messages []models.Message) ([]*genai.Content, string, string) {
	var system []string
	var turns []models.Message
	for _, m := range messages {
		if m.Role == models.RoleSystem {
			system = append(system, m.Text())
			continue
		}
		turns = append(turns, m)
	}

	if len(turns) == 0 {
		return nil, strings.Join(system, "\n"), ""
	}

	last := turns[len(turns)-1]
	history := make([]*genai.Content, 0, len(turns)-1)
	for _, m := range turns[:len(turns)-1] {
		role := "user"
		if m.Role == models.RoleAssistant {
			role = "model"
		}
		text := m.Text()
		if text == "" {
			continue
		}
		history = append(history, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(text)},
		})
	}

	return history, last.Text(), strings.Join(system, "\n")
}

// fragments flattens a streaming response chunk into output fragments.
func fragments(resp *genai.GenerateContentResponse) []Fragment {
	var out []Fragment
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch p := part.(type) {
			case genai.Text:
				if p != "" {
					out = append(out, Fragment{Text: string(p)})
				}
			case genai.FunctionCall:
				args, _ := json.Marshal(p.Args)
				out = append(out, Fragment{ToolName: p.Name, ToolArgs: string(args)})
			}
		}
	}
	return out
}

func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				sb.WriteString(string(t))
			}
		}
	}
	return sb.String()
}
