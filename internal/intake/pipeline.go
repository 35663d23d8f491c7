package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/ocr"
)

// Completer produces the extraction completion for one order.
type Completer interface {
	Complete(ctx context.Context, orderID, system, user string) (string, error)
}

// Resolver runs the resolution core on a raw completion.
type Resolver interface {
	ResolveCompletion(ctx context.Context, content, orderID string) *model.MergedResult
}

const defaultConcurrency = 4

// Pipeline processes order folders end to end.
type Pipeline struct {
	extractor    ocr.Extractor
	completer    Completer
	resolver     Resolver
	maxFileBytes int64
	concurrency  int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxFileBytes sets the document size limit.
func WithMaxFileBytes(n int64) Option {
	return func(p *Pipeline) { p.maxFileBytes = n }
}

// WithConcurrency bounds how many documents of one order are extracted at once.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// New creates a Pipeline.
func New(extractor ocr.Extractor, completer Completer, resolver Resolver, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:    extractor,
		completer:    completer,
		resolver:     resolver,
		maxFileBytes: DefaultMaxFileBytes,
		concurrency:  defaultConcurrency,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Process runs one order folder through extraction, completion and
// resolution. orderID overrides the folder name when non-empty.
func (p *Pipeline) Process(ctx context.Context, dir, orderID string) (*model.MergedResult, error) {
	order, err := LoadOrder(dir, p.maxFileBytes)
	if err != nil {
		return nil, err
	}
	if orderID != "" {
		order.ID = orderID
	}
	if len(order.Documents) == 0 {
		return nil, eris.Errorf("intake: no supported documents in %s", dir)
	}

	log := zap.L().With(zap.String("order_id", order.ID))
	start := time.Now()

	if err := p.Extract(ctx, order); err != nil {
		return nil, err
	}
	log.Info("documents extracted",
		zap.Int("documents", len(order.Documents)),
		zap.Duration("elapsed", time.Since(start)))

	completion, err := p.completer.Complete(ctx, order.ID, SystemPrompt, BuildPrompt(order))
	if err != nil {
		return nil, err
	}

	result := p.resolver.ResolveCompletion(ctx, completion, order.ID)
	log.Info("order processed",
		zap.String("geocoding_status", result.MappingData.Status),
		zap.String("provider_status", result.ProviderMapping.Status),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// Extract fills in the Content of every document. A document that cannot be
// read gets a bracketed error note instead, so the model still sees it was
// attached. Only context cancellation fails the order.
func (p *Pipeline) Extract(ctx context.Context, order *Order) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := range order.Documents {
		doc := &order.Documents[i]
		g.Go(func() error {
			text, err := p.extractDocument(gctx, doc)
			if err != nil {
				if gctx.Err() != nil {
					return eris.Wrapf(gctx.Err(), "intake: extract %s", doc.Name)
				}
				zap.L().Warn("document extraction failed",
					zap.String("order_id", order.ID),
					zap.String("file", doc.Name),
					zap.Error(err))
				text = fmt.Sprintf("[Error extracting %s: %v]", doc.Name, err)
			}
			doc.Content = text
			return nil
		})
	}
	return g.Wait()
}

func (p *Pipeline) extractDocument(ctx context.Context, doc *Document) (string, error) {
	switch doc.Ext {
	case ".txt":
		return readPlainText(doc.Path)
	case ".eml":
		return readEmail(doc.Path)
	case ".docx":
		return readDocx(doc.Path)
	case ".doc":
		return "", eris.New("intake: legacy .doc files are not supported, convert to .docx")
	default:
		if p.extractor == nil {
			return "", eris.Errorf("intake: no OCR extractor configured for %s", doc.Ext)
		}
		return p.extractor.ExtractText(ctx, doc.Path)
	}
}
