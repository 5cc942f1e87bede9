package textextract

import (
	"context"

	"github.com/ah-its-andy/tengine/internal/command"
	"github.com/ah-its-andy/tengine/internal/logging"
	"github.com/ah-its-andy/tengine/internal/metadata"
	"github.com/ah-its-andy/tengine/internal/transform"
	jsoniter "github.com/json-iterator/go"
)

// ID identifies this engine.
const ID = "textextract"

// OptMetadata carries the JSON properties to embed.
const OptMetadata = "metadata"

// Executor runs text extraction in-process and serves metadata requests.
// Library calls are not cancellable: a hung call blocks its goroutine.
type Executor struct {
	lib      Library
	metadata *metadata.Registry
}

// New builds an Executor. A nil lib uses GoLibrary and a nil registry uses
// metadata.NewRegistry.
func New(lib Library, reg *metadata.Registry) *Executor {
	if lib == nil {
		lib = GoLibrary{}
	}
	if reg == nil {
		reg = metadata.NewRegistry()
	}
	return &Executor{lib: lib, metadata: reg}
}

func (e *Executor) ID() string { return ID }

// Transform extracts text from req.SourceFile into req.TargetFile. Metadata
// target mimetypes are forwarded to ExtractMetadata and EmbedMetadata.
func (e *Executor) Transform(ctx context.Context, req transform.Request) error {
	switch req.TargetMimetype {
	case transform.MimetypeMetadataExtract:
		return e.ExtractMetadata(ctx, req)
	case transform.MimetypeMetadataEmbed:
		return e.EmbedMetadata(ctx, req)
	}

	return command.WriteTarget(req.TargetFile, func(tmp string) error {
		args, logLine := buildArgs(req, req.SourceFile, tmp)
		logging.Named(ID).Debug("transform options", "options", logLine)
		if err := e.lib.Transform(ctx, args); err != nil {
			if transform.KindOf(err) != transform.KindUnknown {
				return err
			}
			return &transform.Error{Kind: transform.KindToolFailure, Op: ID, Err: err}
		}
		return nil
	})
}

// ExtractMetadata writes the metadata of req.SourceFile to req.TargetFile as
// JSON, using the extractor named by req.TransformName.
func (e *Executor) ExtractMetadata(ctx context.Context, req transform.Request) error {
	kind, err := metadata.ParseKind(req.TransformName)
	if err != nil {
		return err
	}
	return e.metadata.ExtractTo(ctx, kind, req)
}

// EmbedMetadata writes the properties in the metadata option into a copy of
// req.SourceFile.
func (e *Executor) EmbedMetadata(ctx context.Context, req transform.Request) error {
	kind, err := metadata.ParseKind(req.TransformName)
	if err != nil {
		return err
	}
	props := map[string]any{}
	if raw := req.Option(OptMetadata); raw != "" {
		if err := jsoniter.ConfigCompatibleWithStandardLibrary.UnmarshalFromString(raw, &props); err != nil {
			return transform.Validationf(ID, "option %s is not a JSON object: %v", OptMetadata, err)
		}
	}
	return e.metadata.Embed(ctx, kind, req, props)
}
