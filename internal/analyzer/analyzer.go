// Package analyzer produces per-criterion findings for a complaint text.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/admit/internal/criteria"
	"github.com/joescharf/admit/internal/engine"
	"github.com/joescharf/admit/internal/models"
)

// DefaultConcurrency bounds the number of in-flight model calls per analysis.
const DefaultConcurrency = 4

// ErrNoFindings is returned when no automatic criterion could be evaluated.
var ErrNoFindings = errors.New("analyzer produced no findings")

// Analyzer evaluates a complaint text and returns payloads for the automatic
// criteria it could evaluate. Missing ids are valid partial results.
type Analyzer interface {
	Analyze(ctx context.Context, text string) (map[int]engine.Payload, error)
}

// completer sends one system/user prompt pair and returns the text answer.
type completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// anthropicCompleter calls the Anthropic Messages API.
type anthropicCompleter struct {
	api   *anthropic.Client
	model anthropic.Model
}

func (c *anthropicCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in API response")
}

// Client evaluates every automatic criterion of a registry with one model
// call each.
type Client struct {
	registry    *criteria.Registry
	llm         completer
	concurrency int
}

// NewClient creates an Anthropic-backed analyzer for the given registry.
func NewClient(apiKey, model string, reg *criteria.Registry) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return newClient(reg, &anthropicCompleter{api: &client, model: anthropic.Model(model)})
}

func newClient(reg *criteria.Registry, llm completer) *Client {
	return &Client{registry: reg, llm: llm, concurrency: DefaultConcurrency}
}

// Analyze runs one prompt per automatic criterion concurrently. A criterion
// whose call or answer fails is left out of the result and logged.
func (c *Client) Analyze(ctx context.Context, text string) (map[int]engine.Payload, error) {
	var defs []criteria.Definition
	for _, def := range c.registry.All() {
		if def.Mode == models.ModeAutomatic {
			defs = append(defs, def)
		}
	}

	var (
		mu       sync.Mutex
		payloads = make(map[int]engine.Payload, len(defs))
		failures []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for _, def := range defs {
		g.Go(func() error {
			p, err := c.evaluate(gctx, def, text)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn().Err(err).Int("criterion", def.ID).Msg("criterion analysis failed")
				failures = append(failures, err)
				return nil
			}
			payloads[def.ID] = p
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(defs) > 0 && len(payloads) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrNoFindings, errors.Join(failures...))
	}
	return payloads, nil
}

func (c *Client) evaluate(ctx context.Context, def criteria.Definition, text string) (engine.Payload, error) {
	system, user := buildPrompt(def, text)
	answer, err := c.llm.Complete(ctx, system, user)
	if err != nil {
		return engine.Payload{}, fmt.Errorf("criterion %d: %w", def.ID, err)
	}
	p, err := decodePayload(def, stripFences(answer))
	if err != nil {
		return engine.Payload{}, fmt.Errorf("criterion %d: %w", def.ID, err)
	}
	return p, nil
}

// decodePayload parses a model answer into the payload shape of def.
func decodePayload(def criteria.Definition, text string) (engine.Payload, error) {
	switch def.Shape {
	case models.ShapeFields:
		var fp engine.FieldsPayload
		if err := json.Unmarshal([]byte(text), &fp); err != nil {
			return engine.Payload{}, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
		}
		for key := range fp.Values {
			if !def.HasField(key) {
				delete(fp.Values, key)
			}
		}
		return engine.Payload{Fields: &fp}, nil
	case models.ShapePeople:
		var pp engine.PeoplePayload
		if err := json.Unmarshal([]byte(text), &pp); err != nil {
			return engine.Payload{}, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
		}
		pp.Status = peopleStatus(pp.People)
		return engine.Payload{People: &pp}, nil
	case models.ShapeAuthority:
		var ap engine.AuthorityPayload
		if err := json.Unmarshal([]byte(text), &ap); err != nil {
			return engine.Payload{}, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
		}
		if !ap.Result.Valid() {
			return engine.Payload{}, fmt.Errorf("invalid authority result %q", ap.Result)
		}
		return engine.Payload{Authority: &ap}, nil
	}
	return engine.Payload{}, fmt.Errorf("criterion %d has no analyzer shape", def.ID)
}

// peopleStatus succeeds only when a complainant is identified.
func peopleStatus(people []models.Person) models.Status {
	for _, p := range people {
		if p.Role == models.RoleComplainant && p.Name != "" {
			return models.StatusSuccess
		}
	}
	return models.StatusFail
}
