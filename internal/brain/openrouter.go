package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	convdomain "github.com/tinylojas/conversa/internal/conversation/domain"
)

const systemPrompt = "Você é um assistente de operações de varejo. Responda de forma curta e objetiva, em português, sobre pedidos, faturamento e integrações do lojista."

// maxContextTurns bounds how much stored history travels with each request.
const maxContextTurns = 10

type OpenRouterClient struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewOpenRouterClient(baseURL, apiKey, model string) *OpenRouterClient {
	if baseURL == "" {
		baseURL = "https://openrouter.ai/api/v1"
	}
	return &OpenRouterClient{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// Generate sends the inbound text plus bounded conversation history to the
// chat-completions endpoint and returns the assistant reply.
func (c *OpenRouterClient) Generate(ctx context.Context, text string, convCtx *convdomain.Context) (string, error) {
	if c.Client == nil {
		return "", errors.New("openrouter: http client is nil")
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return "", errors.New("openrouter: api key is required")
	}
	model := strings.TrimSpace(c.Model)
	if model == "" {
		return "", errors.New("openrouter: model is required")
	}

	messages := []chatMessage{{Role: "system", Content: systemPrompt}}
	if convCtx != nil {
		turns := convCtx.Turns()
		if len(turns) > maxContextTurns {
			turns = turns[len(turns)-maxContextTurns:]
		}
		for _, turn := range turns {
			messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Text})
		}
	}
	messages = append(messages, chatMessage{Role: "user", Content: text})

	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/chat/completions", strings.TrimRight(c.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		msg := strings.TrimSpace(string(raw))
		if msg == "" {
			msg = fmt.Sprintf("status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("openrouter: %s", msg)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", errors.New(decoded.Error.Message)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("openrouter: empty response")
	}
	return decoded.Choices[0].Message.Content, nil
}
