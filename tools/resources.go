package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/krakend/docsearch-mcp/internal/docset"
)

const (
	sourcesResourceURI  = "docs://sources"
	pagesResourcePrefix = "docs://pages/"
	pagesResourceTmpl   = pagesResourcePrefix + "{source}"
	resourceMIMEType    = "application/json"
)

// RegisterDocSearchResources exposes the loaded sources and their page
// outlines as MCP resources
func RegisterDocSearchResources(server *mcp.Server) {
	server.AddResource(&mcp.Resource{
		URI:         sourcesResourceURI,
		Name:        "sources",
		Description: "Loaded documentation sources with fragment, page and section counts",
		MIMEType:    resourceMIMEType,
	}, readSourcesResource)

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: pagesResourceTmpl,
		Name:        "pages",
		Description: "Page outline of one documentation source",
		MIMEType:    resourceMIMEType,
	}, readPagesResource)
}

func readSourcesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	sources := Sources()
	if sources == nil {
		sources = []docset.SourceInfo{}
	}
	return jsonResource(req.Params.URI, map[string]any{"sources": sources})
}

func readPagesResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	source, err := url.PathUnescape(strings.TrimPrefix(uri, pagesResourcePrefix))
	if err != nil {
		return nil, fmt.Errorf("invalid resource URI %q: %w", uri, err)
	}

	name, pages, err := Pages(source)
	if errors.Is(err, docset.ErrUnknownSource) {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	if err != nil {
		return nil, err
	}
	return jsonResource(uri, ListPagesOutput{Source: name, Pages: pages})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode resource: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: resourceMIMEType,
			Text:     string(data),
		}},
	}, nil
}
