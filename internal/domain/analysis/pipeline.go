package analysis

import (
	"github.com/kaptinlin/jsonrepair"
)

const defaultPreviewLimit = 500

// Strategy names the parse attempt that produced a record.
type Strategy string

const (
	StrategyDirect     Strategy = "direct"
	StrategyCleaned    Strategy = "cleaned"
	StrategyDeepRepair Strategy = "deep_repair"
)

// Options tune a Pipeline. The zero value is valid.
type Options struct {
	// FallbackTokens pads an under-length keyTokens list. Nil means DefaultFallbackTokens.
	FallbackTokens []string
	// PreviewLimit bounds the text previews carried by errors, in runes. Zero means 500.
	PreviewLimit int
	// DeepRepair runs jsonrepair over the cleaned candidate when the clean parse fails.
	DeepRepair bool
}

// Pipeline turns raw model output into a Record. It holds no mutable state and
// is safe for concurrent use.
type Pipeline struct {
	fallback     []string
	previewLimit int
	deepRepair   bool
}

// Outcome is a successful pipeline run.
type Outcome struct {
	Record   Record
	Strategy Strategy
}

func New(opts Options) *Pipeline {
	p := &Pipeline{
		fallback:     DefaultFallbackTokens,
		previewLimit: defaultPreviewLimit,
		deepRepair:   opts.DeepRepair,
	}
	if opts.FallbackTokens != nil {
		p.fallback = append([]string(nil), opts.FallbackTokens...)
	}
	if opts.PreviewLimit > 0 {
		p.previewLimit = opts.PreviewLimit
	}
	return p
}

var defaultPipeline = New(Options{})

// Extract runs raw through a pipeline with default options.
func Extract(raw string) (Record, error) {
	return defaultPipeline.Run(raw)
}

// Run returns the finished record for raw, or an *Error.
func (p *Pipeline) Run(raw string) (Record, error) {
	out, err := p.RunDetailed(raw)
	if err != nil {
		return Record{}, err
	}
	return out.Record, nil
}

// RunDetailed is Run plus the strategy that produced the parse.
//
// The normalized text is parsed directly when it already looks like an object.
// Otherwise, or when that fails, the object span is extracted, textually
// repaired and parsed again. Failure at that point is terminal.
func (p *Pipeline) RunDetailed(raw string) (Outcome, error) {
	normalized := Normalize(raw)

	var (
		obj      map[string]any
		strategy = StrategyDirect
	)
	if looksLikeObject(normalized) {
		if parsed, err := ParseObject(normalized); err == nil {
			obj = parsed
		}
	}
	if obj == nil {
		var err error
		obj, strategy, err = p.parseCleaned(raw, normalized)
		if err != nil {
			return Outcome{}, err
		}
	}

	rec, err := Validate(obj)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Record: RepairFields(rec, p.fallback), Strategy: strategy}, nil
}

func (p *Pipeline) parseCleaned(raw, normalized string) (map[string]any, Strategy, error) {
	candidate, err := ExtractObject(normalized)
	if err != nil {
		return nil, "", p.extractionFailed(raw, normalized, err)
	}
	cleaned := RepairSyntax(candidate)
	obj, err := ParseObject(cleaned)
	if err == nil {
		return obj, StrategyCleaned, nil
	}
	if p.deepRepair {
		if repaired, rerr := jsonrepair.JSONRepair(cleaned); rerr == nil {
			if obj, derr := ParseObject(repaired); derr == nil {
				return obj, StrategyDeepRepair, nil
			}
		}
	}
	return nil, "", p.extractionFailed(raw, cleaned, err)
}

func (p *Pipeline) extractionFailed(raw, cleaned string, cause error) *Error {
	if se, ok := cause.(*Error); ok && se.Snippet != "" {
		se.Snippet = Preview(se.Snippet, p.previewLimit)
	}
	return &Error{
		Kind:            KindExtractionFailed,
		OriginalLen:     len(raw),
		OriginalPreview: Preview(raw, p.previewLimit),
		CleanedPreview:  Preview(cleaned, p.previewLimit),
		Cause:           cause,
	}
}
