// Package provider is the caller-owned cache around the resolver: parsed
// query texts keyed by URI and version, and the current schema snapshot with
// a version token that changes whenever the schema is replaced.
//
// Nothing here is global. A host (CLI, REPL, editor integration) creates one
// Provider and passes it where it is needed.
package provider

import (
	"log/slog"
	"sync"

	"github.com/leapstack-labs/sqlscope/pkg/ast"
	"github.com/leapstack-labs/sqlscope/pkg/resolve"
	"github.com/leapstack-labs/sqlscope/pkg/schema"
)

// Provider caches parsed documents and the schema snapshot.
type Provider struct {
	// Document cache (keyed by URI)
	documents   map[string]*Document
	documentsMu sync.RWMutex

	// Schema snapshot and its version token
	schema        *schema.Catalog
	schemaVersion int64
	schemaMu      sync.RWMutex

	logger *slog.Logger
}

// New creates an empty Provider.
func New(logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{
		documents: make(map[string]*Document),
		schema:    schema.NewCatalog(),
		logger:    logger,
	}
}

// GetOrParse returns the cached document for uri when its version is at
// least version, and parses content otherwise. Safe for concurrent use.
func (p *Provider) GetOrParse(uri string, content string, version int, params ...ast.Param) *Document {
	p.documentsMu.RLock()
	doc, exists := p.documents[uri]
	if exists && doc.Version >= version {
		p.documentsMu.RUnlock()
		return doc
	}
	p.documentsMu.RUnlock()

	p.documentsMu.Lock()
	defer p.documentsMu.Unlock()

	// Double-check after acquiring write lock
	doc, exists = p.documents[uri]
	if exists && doc.Version >= version {
		return doc
	}

	doc = Parse(content, uri, version, params...)
	p.documents[uri] = doc
	if doc.Err != nil {
		p.logger.Debug("document does not parse", "uri", uri, "version", version, "error", doc.Err)
	}
	return doc
}

// Tree is GetOrParse for callers that only want the tree.
func (p *Provider) Tree(uri string, content string, version int) (*ast.Tree, error) {
	doc := p.GetOrParse(uri, content, version)
	return doc.Tree, doc.Err
}

// Get returns a cached document without parsing, or nil.
func (p *Provider) Get(uri string) *Document {
	p.documentsMu.RLock()
	defer p.documentsMu.RUnlock()
	return p.documents[uri]
}

// Invalidate removes a document from the cache.
func (p *Provider) Invalidate(uri string) {
	p.documentsMu.Lock()
	defer p.documentsMu.Unlock()
	delete(p.documents, uri)
}

// InvalidateAll clears the document cache.
func (p *Provider) InvalidateAll() {
	p.documentsMu.Lock()
	defer p.documentsMu.Unlock()
	p.documents = make(map[string]*Document)
}

// Schema returns the current snapshot and its version token. The token is 0
// until a schema is set.
func (p *Provider) Schema() (*schema.Catalog, int64) {
	p.schemaMu.RLock()
	defer p.schemaMu.RUnlock()
	return p.schema, p.schemaVersion
}

// SetSchema replaces the snapshot and returns the new version token.
// Resolvers already handed out keep the snapshot they were created with.
func (p *Provider) SetSchema(c *schema.Catalog) int64 {
	if c == nil {
		c = schema.NewCatalog()
	}
	p.schemaMu.Lock()
	defer p.schemaMu.Unlock()
	p.schema = c
	p.schemaVersion++
	p.logger.Debug("schema replaced", "version", p.schemaVersion, "entities", c.Len())
	return p.schemaVersion
}

// Resolver binds tree to the current schema snapshot.
func (p *Provider) Resolver(tree *ast.Tree, opts ...resolve.Option) *resolve.Resolver {
	c, _ := p.Schema()
	opts = append([]resolve.Option{resolve.WithLogger(p.logger)}, opts...)
	return resolve.New(tree, c, opts...)
}
