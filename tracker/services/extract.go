package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sitetrack/tracker/auth"
	"sitetrack/utils"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sashabaranov/go-openai"
	"gopkg.in/yaml.v3"
)

// extractPrompt instructs the model to return the fields of a material
// request as a single JSON object. Enum cleanup happens client side.
const extractPrompt = `ANALYZE CONSTRUCTION DOCUMENT.
Return strictly JSON:
{
    "material_name": "string",
    "quantity": number,
    "unit": "pieces" | "kg" | "m" | "bags" | "m3" | "liters",
    "priority": "low" | "medium" | "high" | "urgent",
    "notes": "string"
}
PRIORITY RULES:
- "High Priority" or "Important" -> "high"
- "Urgent", "ASAP", or "Emergency" -> "urgent"
- Include deadlines in notes.`

// defaultExtractModels is the probe order when no model list file is given.
// Model availability varies by account, so the first model that answers with
// a non empty response wins.
var defaultExtractModels = []string{
	"gemini-1.5-flash-latest",
	"gemini-flash-latest",
	"gemini-2.0-flash-exp",
	"gemini-pro",
}

type ExtractConfig struct {
	ApiKey  string
	BaseUrl string
	Models  []string
}

type extractModelsFile struct {
	Models []string `yaml:"models"`
}

// LoadExtractModels reads the model probe list from a yaml file. A missing
// path falls back to the default list.
func LoadExtractModels(path string) ([]string, error) {
	if path == "" {
		return defaultExtractModels, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading extraction model list %v: %w", path, err)
	}

	var parsed extractModelsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("error parsing extraction model list %v: %w", path, err)
	}
	if len(parsed.Models) == 0 {
		return defaultExtractModels, nil
	}
	return parsed.Models, nil
}

type ExtractService struct {
	client   *openai.Client
	models   []string
	userAuth auth.IdentityProvider
}

func NewExtractService(cfg ExtractConfig, userAuth auth.IdentityProvider) *ExtractService {
	if cfg.ApiKey == "" {
		return &ExtractService{userAuth: userAuth}
	}

	clientCfg := openai.DefaultConfig(cfg.ApiKey)
	if cfg.BaseUrl != "" {
		clientCfg.BaseURL = cfg.BaseUrl
	}

	models := cfg.Models
	if len(models) == 0 {
		models = defaultExtractModels
	}

	return &ExtractService{
		client:   openai.NewClientWithConfig(clientCfg),
		models:   models,
		userAuth: userAuth,
	}
}

func (s *ExtractService) Routes() chi.Router {
	r := chi.NewRouter()

	r.Group(func(r chi.Router) {
		r.Use(s.userAuth.AuthMiddleware()...)

		r.Post("/", s.Extract)
	})

	return r
}

type extractRequest struct {
	Image string `json:"image"`
}

type extractResponse struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

func (s *ExtractService) probeModels(ctx context.Context, imageB64 string) (extractResponse, error) {
	var lastErr error

	for _, model := range s.models {
		slog.Info("probing extraction model", "model", model)

		resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role: openai.ChatMessageRoleUser,
					MultiContent: []openai.ChatMessagePart{
						{
							Type: openai.ChatMessagePartTypeText,
							Text: extractPrompt,
						},
						{
							Type: openai.ChatMessagePartTypeImageURL,
							ImageURL: &openai.ChatMessageImageURL{
								URL:    "data:image/jpeg;base64," + imageB64,
								Detail: openai.ImageURLDetailLow,
							},
						},
					},
				},
			},
		})
		if err != nil {
			slog.Error("extraction model probe failed", "model", model, "error", err)
			lastErr = err
			continue
		}

		if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
			return extractResponse{Text: resp.Choices[0].Message.Content, Model: model}, nil
		}
	}

	if lastErr == nil {
		lastErr = errors.New("no extraction model produced a response")
	}
	return extractResponse{}, fmt.Errorf("extraction failed: %w", lastErr)
}

func (s *ExtractService) Extract(w http.ResponseWriter, r *http.Request) {
	if s.client == nil {
		http.Error(w, "document extraction is not configured", http.StatusServiceUnavailable)
		return
	}

	var params extractRequest
	if !utils.ParseRequestBody(w, r, &params) {
		return
	}

	if params.Image == "" {
		http.Error(w, "missing image data", http.StatusUnprocessableEntity)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 60*time.Second)
	defer cancel()

	res, err := s.probeModels(ctx, params.Image)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	slog.Info("document extraction succeeded", "model", res.Model)

	utils.WriteJsonResponse(w, res)
}
