package persistence

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/hiroki-koketsu/go-todolists/internal/model"
)

const instrumentationName = "github.com/hiroki-koketsu/go-todolists/internal/persistence"

var tracer = otel.Tracer(instrumentationName)

//go:embed schema.json
var schemaJSON []byte

const schemaURL = "todolists.schema.json"

// Gateway loads and saves the whole store as a single JSON document.
// Load never fails and Save never returns an error: unreadable documents
// start an empty store and write failures are logged and dropped.
type Gateway struct {
	backend  Backend
	logger   *slog.Logger
	schema   *jsonschema.Schema
	failures metric.Int64Counter
}

// NewGateway creates a Gateway on top of backend.
func NewGateway(backend Backend, logger *slog.Logger) (*Gateway, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add document schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile document schema: %w", err)
	}

	failures, err := otel.Meter(instrumentationName).Int64Counter(
		"persistence_failures_total",
		metric.WithDescription("Number of store saves that failed and were dropped"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create persistence failure counter: %w", err)
	}

	return &Gateway{
		backend:  backend,
		logger:   logger,
		schema:   schema,
		failures: failures,
	}, nil
}

// Load reads the document from the backend. A missing, empty, corrupt or
// schema-invalid document yields an empty snapshot.
func (g *Gateway) Load(ctx context.Context) *model.Snapshot {
	ctx, span := tracer.Start(ctx, "Gateway.Load")
	defer span.End()

	data, err := g.backend.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrNoDocument) {
			g.logger.InfoContext(ctx, "no store document found, starting empty")
			return &model.Snapshot{}
		}
		span.RecordError(err)
		g.logger.ErrorContext(ctx, "failed to read store document, starting empty", slog.Any("error", err))
		return &model.Snapshot{}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		g.logger.WarnContext(ctx, "store document is empty, starting empty")
		return &model.Snapshot{}
	}

	if err := g.validate(data); err != nil {
		span.RecordError(err)
		g.logger.WarnContext(ctx, "store document is invalid, starting empty", slog.Any("error", err))
		return &model.Snapshot{}
	}

	snap, err := decodeDocument(data)
	if err != nil {
		span.RecordError(err)
		g.logger.WarnContext(ctx, "store document is corrupt, starting empty", slog.Any("error", err))
		return &model.Snapshot{}
	}

	span.SetAttributes(
		attribute.Int("todolist.count", len(snap.TodoLists)),
		attribute.Int("item.count", len(snap.Items)),
	)
	g.logger.InfoContext(ctx, "store document loaded",
		slog.Int("todolists", len(snap.TodoLists)),
		slog.Int("items", len(snap.Items)),
	)
	return snap
}

// Save writes the full snapshot. Failures are logged, counted and swallowed.
func (g *Gateway) Save(ctx context.Context, snap *model.Snapshot) {
	// A client hanging up must not abort a write that already mutated memory.
	ctx = context.WithoutCancel(ctx)

	ctx, span := tracer.Start(ctx, "Gateway.Save",
		trace.WithAttributes(
			attribute.Int("todolist.count", len(snap.TodoLists)),
			attribute.Int("item.count", len(snap.Items)),
		),
	)
	defer span.End()

	data, err := encodeDocument(snap)
	if err != nil {
		g.fail(ctx, span, "encode", err)
		return
	}

	if err := g.backend.Write(ctx, data); err != nil {
		g.fail(ctx, span, "write", err)
		return
	}

	span.SetAttributes(attribute.Int("document.bytes", len(data)))
}

func (g *Gateway) validate(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	if err := g.schema.Validate(doc); err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	return nil
}

func (g *Gateway) fail(ctx context.Context, span trace.Span, stage string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	g.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
	g.logger.ErrorContext(ctx, "failed to persist store",
		slog.String("stage", stage),
		slog.Any("error", err),
	)
}
